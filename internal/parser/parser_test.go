package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fsdJump = `{
  "$schemaRef": "https://eddn.edcd.io/schemas/journal/1",
  "header": {"gatewayTimestamp": "2024-03-01T12:30:45.123456Z", "softwareName": "test"},
  "message": {
    "event": "FSDJump",
    "StarSystem": "Sol",
    "SystemSecurity": "$SYSTEM_SECURITY_high;",
    "Factions": [
      {"Name": "Mother Gaia", "Influence": 0.7, "ActiveStates": [{"State": "Boom"}, {"State": "CivilLiberty"}]},
      {"Name": "Sol Workers' Party", "Influence": 0.2},
      {"Name": "Sol Constitution Party", "Influence": 0.1, "ActiveStates": []}
    ],
    "Conflicts": [
      {"WarType": "civilwar", "Status": "active",
       "Faction1": {"Name": "Mother Gaia", "Stake": "", "WonDays": 2},
       "Faction2": {"Name": "Sol Workers' Party", "Stake": "", "WonDays": 1}}
    ]
  }
}`

func TestExtract_ErrorTaxonomy(t *testing.T) {
	interest := NewInterestSet("Mother Gaia")
	cases := []struct {
		name  string
		input string
		want  error
	}{
		{name: "empty", input: "", want: ErrMalformedInput},
		{name: "whitespace", input: "  \n ", want: ErrMalformedInput},
		{name: "not json", input: "hello world", want: ErrMalformedInput},
		{name: "truncated", input: `{"header": {`, want: ErrMalformedInput},
		{name: "array document", input: `[1, 2]`, want: ErrMalformedInput},
		{name: "missing header", input: `{"message": {}}`, want: ErrMissingField},
		{name: "null header", input: `{"header": null, "message": {}}`, want: ErrMissingField},
		{name: "missing timestamp", input: `{"header": {}, "message": {}}`, want: ErrMissingField},
		{name: "missing message", input: `{"header": {"gatewayTimestamp": "2024-03-01T12:00:00Z"}}`, want: ErrMissingField},
		{name: "empty timestamp", input: `{"header": {"gatewayTimestamp": ""}, "message": {}}`, want: ErrInvalidFormat},
		{name: "garbage timestamp", input: `{"header": {"gatewayTimestamp": "yesterday"}, "message": {}}`, want: ErrInvalidFormat},
		{name: "numeric timestamp", input: `{"header": {"gatewayTimestamp": 12}, "message": {}}`, want: ErrInvalidFormat},
		{name: "string influence", input: `{"header": {"gatewayTimestamp": "2024-03-01T12:00:00Z"}, "message": {"StarSystem": "Sol", "Factions": [{"Name": "A", "Influence": "high"}]}}`, want: ErrInvalidFormat},
		{name: "nameless faction", input: `{"header": {"gatewayTimestamp": "2024-03-01T12:00:00Z"}, "message": {"StarSystem": "Sol", "Factions": [{"Influence": 0.2}]}}`, want: ErrInvalidFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			facts, err := Extract([]byte(tc.input), interest)
			require.ErrorIs(t, err, tc.want)
			assert.Nil(t, facts)
		})
	}
}

func TestExtract_NoStarSystem(t *testing.T) {
	facts, err := Extract([]byte(`{"header": {"gatewayTimestamp": "2024-03-01T12:00:00Z"}, "message": {"event": "Docked"}}`), NewInterestSet("Mother Gaia"))
	require.NoError(t, err)
	assert.Empty(t, facts.Region)
	assert.Empty(t, facts.Factions)
	assert.False(t, facts.Relevant())
}

func TestExtract_NoInterestingFactions(t *testing.T) {
	facts, err := Extract([]byte(fsdJump), NewInterestSet("Canonn"))
	require.NoError(t, err)
	assert.Equal(t, "Sol", facts.Region)
	assert.Empty(t, facts.Factions)
	assert.Empty(t, facts.Conflicts)
	assert.False(t, facts.Relevant())
}

func TestExtract_MatchIsAGate(t *testing.T) {
	facts, err := Extract([]byte(fsdJump), NewInterestSet("mother gaia"))
	require.NoError(t, err)
	require.True(t, facts.Relevant())

	assert.Equal(t, "Sol", facts.Region)
	assert.Equal(t, "$SYSTEM_SECURITY_high;", facts.Security)
	assert.Equal(t, []string{"Mother Gaia", "Sol Workers' Party", "Sol Constitution Party"}, facts.FactionNames())
	assert.Equal(t, 0.7, facts.Factions[0].Influence)
	assert.ElementsMatch(t, []string{"Boom", "CivilLiberty"}, facts.Factions[0].States)
	assert.Empty(t, facts.Factions[1].States)
	assert.NotNil(t, facts.Factions[1].States)
	assert.Empty(t, facts.Factions[2].States)

	require.Len(t, facts.Conflicts, 1)
	assert.Equal(t, ConflictFact{
		WarType: "civilwar",
		Status:  "active",
		A:       ConflictSide{Name: "Mother Gaia", WonDays: 2},
		B:       ConflictSide{Name: "Sol Workers' Party", WonDays: 1},
	}, facts.Conflicts[0])
}

func TestExtract_TimestampNormalized(t *testing.T) {
	input := `{"header": {"gatewayTimestamp": "2024-03-01T14:30:45+02:00"}, "message": {}}`
	facts, err := Extract([]byte(input), nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, facts.Timestamp.Location())
	assert.True(t, facts.Timestamp.Equal(time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)))

	facts, err = Extract([]byte(fsdJump), nil)
	require.NoError(t, err)
	assert.Equal(t, 123456000, facts.Timestamp.Nanosecond())
}

func TestExtract_Idempotent(t *testing.T) {
	interest := NewInterestSet("Mother Gaia")
	first, err := Extract([]byte(fsdJump), interest)
	require.NoError(t, err)
	second, err := Extract([]byte(fsdJump), interest)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestInterestSet(t *testing.T) {
	set := NewInterestSet("Canonn", "  ", "Sirius Corporation ")
	assert.Len(t, set, 2)
	assert.True(t, set.Contains("canonn"))
	assert.True(t, set.Contains("SIRIUS CORPORATION"))
	assert.False(t, set.Contains("Mother Gaia"))

	var empty InterestSet
	assert.False(t, empty.Contains("Canonn"))
}
