package status

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMixedCase(t *testing.T) {
	got := Parse("interface eth0 is online\ninterface eth1 is OFFLINE\nfoo")

	require.Len(t, got, 2)
	assert.Equal(t, IfaceState{Name: "eth0", Status: StatusOnline, RawLine: "interface eth0 is online"}, got[0])
	assert.Equal(t, IfaceState{Name: "eth1", Status: StatusOffline, RawLine: "interface eth1 is OFFLINE"}, got[1])
}

func TestParseMwan3Report(t *testing.T) {
	raw := `Interface status:
 interface wan is online 12h:03m:10s, uptime 14h:00m:02s and tracking is active
interface wan is online 12h:03m:10s, uptime 14h:00m:02s and tracking is active
interface wanb is offline and tracking is down


Current ipv4 policies:
balanced:
 wan (50%)
Interface wanc is Online`

	got := Parse(raw)

	require.Len(t, got, 3)
	assert.Equal(t, "wan", got[0].Name)
	assert.Equal(t, StatusOnline, got[0].Status)
	assert.Equal(t, "wanb", got[1].Name)
	assert.Equal(t, StatusOffline, got[1].Status)
	assert.Equal(t, "wanc", got[2].Name)
	assert.Equal(t, StatusOnline, got[2].Status)
	// Indented lines are not at the start of the line and do not match
	assert.Equal(t, "interface wan is online 12h:03m:10s, uptime 14h:00m:02s and tracking is active", got[0].RawLine)
}

func TestParseIgnoresOtherStates(t *testing.T) {
	assert.Empty(t, Parse("interface wan is connecting\ninterface is online\n"))
	assert.Empty(t, Parse(""))
}

func TestParseNeverYieldsUnknown(t *testing.T) {
	inputs := []string{
		"interface a is unknown",
		"interface b is online\ninterface c is offline",
		"INTERFACE d IS ONLINE",
		"interface e is",
	}
	for _, in := range inputs {
		for _, s := range Parse(in) {
			assert.NotEqual(t, StatusUnknown, s.Status, in)
		}
	}
}

func TestParseOutputIsSubsetOfLines(t *testing.T) {
	inputs := []string{
		"interface eth0 is online\n\n\ninterface eth1 is offline\n",
		"x\ny\ninterface z is ONLINE trailing text",
		"interface a is online\r\ninterface b is offline",
		"\n\n\n",
	}
	for _, in := range inputs {
		lines := strings.Split(in, "\n")
		got := Parse(in)
		assert.LessOrEqual(t, len(got), len(lines), in)
		for _, s := range got {
			assert.Contains(t, lines, s.RawLine, in)
		}
	}
}

func TestParseIsStateless(t *testing.T) {
	first := Parse("interface wan is online")
	second := Parse("interface wanb is offline")

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "wanb", second[0].Name)
}

func TestDisplayStatus(t *testing.T) {
	assert.Equal(t, StatusOnline, IfaceState{Status: StatusOnline}.DisplayStatus())
	assert.Equal(t, StatusOffline, IfaceState{Status: StatusOffline}.DisplayStatus())
	assert.Equal(t, StatusUnknown, IfaceState{}.DisplayStatus())
	assert.Equal(t, StatusUnknown, IfaceState{Status: "degraded"}.DisplayStatus())
}
