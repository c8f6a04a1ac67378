package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestTestCaseValidation(t *testing.T) {
	tests := []struct {
		name    string
		tc      TestCase
		wantErr string
	}{
		{
			name: "explicit commands",
			tc:   TestCase{Name: "handshake", Commands: []Command{"uci", "quit"}},
		},
		{
			name: "derived script",
			tc:   TestCase{Name: "reply", WhiteMoves: []string{"e2e4"}, Depth: 3, ExpectTurn: ColorBlack},
		},
		{
			name:    "missing name",
			tc:      TestCase{Commands: []Command{"uci"}},
			wantErr: "case name is required",
		},
		{
			name:    "depth and movetime",
			tc:      TestCase{Name: "x", Depth: 3, MoveTime: time.Second},
			wantErr: "mutually exclusive",
		},
		{
			name:    "fen and white moves",
			tc:      TestCase{Name: "x", FEN: "8/8/8/8/8/8/8/8 w 0 1", WhiteMoves: []string{"a2a3"}},
			wantErr: "mutually exclusive",
		},
		{
			name:    "commands with derived fields",
			tc:      TestCase{Name: "x", Commands: []Command{"uci"}, Depth: 2},
			wantErr: "cannot be combined",
		},
		{
			name:    "bad turn",
			tc:      TestCase{Name: "x", ExpectTurn: "red"},
			wantErr: "expect_turn",
		},
		{
			name:    "unknown verdict",
			tc:      TestCase{Name: "x", ExpectVerdict: "maybe"},
			wantErr: "unknown expected verdict",
		},
		{
			name:    "negative timeout",
			tc:      TestCase{Name: "x", Timeout: durationPtr(-time.Second)},
			wantErr: "timeout must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildCommands(t *testing.T) {
	tests := []struct {
		name string
		tc   TestCase
		want []Command
	}{
		{
			name: "start position only",
			tc:   TestCase{Name: "a"},
			want: []Command{"uci", "position startpos", "quit"},
		},
		{
			name: "white moves and depth",
			tc:   TestCase{Name: "a", WhiteMoves: []string{"a2a3", "b2b3"}, Depth: 3},
			want: []Command{"uci", "position startpos moves a2a3 b2b3", "go depth 3", "quit"},
		},
		{
			name: "fen and movetime",
			tc:   TestCase{Name: "a", FEN: " 8/8/8/8/8/8/8/8 b 0 1 ", MoveTime: 1500 * time.Millisecond},
			want: []Command{"uci", "position fen 8/8/8/8/8/8/8/8 b 0 1", "go movetime 1500", "quit"},
		},
		{
			name: "explicit commands untouched",
			tc:   TestCase{Name: "a", Commands: []Command{"uci", "isready"}},
			want: []Command{"uci", "isready"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tc.BuildCommands())
		})
	}
}

func TestBuildCommandsReturnsCopy(t *testing.T) {
	tc := TestCase{Name: "a", Commands: []Command{"uci"}}
	cmds := tc.BuildCommands()
	cmds[0] = "changed"
	assert.Equal(t, Command("uci"), tc.Commands[0])
}

func TestGoCount(t *testing.T) {
	assert.Equal(t, 0, GoCount([]Command{"uci", "quit"}))
	assert.Equal(t, 2, GoCount([]Command{"go depth 1", "position startpos", "go movetime 10", "gopher"}))
}

func TestBudgetAndWantedVerdict(t *testing.T) {
	tc := TestCase{Name: "a"}
	assert.Equal(t, 30*time.Second, tc.Budget(30*time.Second))
	assert.Equal(t, VerdictPass, tc.WantedVerdict())

	tc.Timeout = durationPtr(0)
	tc.ExpectVerdict = VerdictTimeout
	assert.Equal(t, time.Duration(0), tc.Budget(30*time.Second), "zero is an explicit budget")
	assert.Equal(t, VerdictTimeout, tc.WantedVerdict())
}

func TestVerdictValid(t *testing.T) {
	for _, v := range []Verdict{VerdictPass, VerdictFail, VerdictLaunchFailure, VerdictTimeout, VerdictError} {
		assert.True(t, v.Valid(), v)
	}
	assert.False(t, Verdict("").Valid())
	assert.False(t, Verdict("PASS").Valid())
}

func TestSuiteValidate(t *testing.T) {
	empty := Suite{Name: "empty"}
	assert.ErrorContains(t, empty.Validate(), "has no cases")

	s := Suite{Name: "s", Cases: []TestCase{
		{Name: "a"},
		{Name: "a"},
		{Name: ""},
	}}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate case name "a"`)
	assert.Contains(t, err.Error(), "case name is required")
	assert.Equal(t, 2, strings.Count(err.Error(), "\n")+1)
}

func TestSuiteFilter(t *testing.T) {
	s := &Suite{Name: "s", Cases: []TestCase{{Name: "a"}, {Name: "b"}, {Name: "c"}}}

	same, err := s.Filter(nil)
	require.NoError(t, err)
	assert.Same(t, s, same)

	filtered, err := s.Filter([]string{"c", "a"})
	require.NoError(t, err)
	require.Len(t, filtered.Cases, 2)
	assert.Equal(t, "a", filtered.Cases[0].Name, "suite order is kept")
	assert.Equal(t, "c", filtered.Cases[1].Name)
	assert.Len(t, s.Cases, 3, "original is untouched")

	_, err = s.Filter([]string{"a", "zzz"})
	assert.ErrorContains(t, err, `no case named "zzz"`)
}

func TestSummaryAllPassed(t *testing.T) {
	assert.True(t, Summary{Total: 2, Passed: 2}.AllPassed())
	assert.False(t, Summary{Total: 2, Passed: 1, Failed: 1}.AllPassed())
	assert.True(t, TestResult{BestMove: "e2e4"}.HasBestMove())
}

func TestRecordKindNames(t *testing.T) {
	for kind, name := range recordKindNames {
		parsed, err := ParseRecordKind(strings.ToUpper(name))
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
		assert.Equal(t, name, kind.String())
	}
	_, err := ParseRecordKind("telepathy")
	assert.Error(t, err)
	assert.Equal(t, "unknown", RecordKind(99).String())
	assert.Equal(t, "err", StreamStderr.String())
}
