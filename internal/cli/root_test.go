// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/engine"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopCloseStore keeps the shared memory store usable across commands.
type nopCloseStore struct {
	*service.MemoryStore
}

func (nopCloseStore) Close() error { return nil }

type cliFixture struct {
	store *service.MemoryStore
	now   time.Time
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	f := &cliFixture{
		store: service.NewMemoryStore(),
		now:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	ctx := context.Background()
	c, err := challenge.New(challenge.NewChallengeInput{ID: "run", OwnerID: "alice", Name: "run"}, f.now)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveChallenge(ctx, c))
	require.NoError(t, f.store.AddMember(ctx, "run", "alice"))
	require.NoError(t, f.store.AddMember(ctx, "run", "bob"))
	return f
}

func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(Deps{
		OpenStore: func(ctx context.Context) (service.Store, error) { return nopCloseStore{f.store}, nil },
		Clock:     func() time.Time { return f.now },
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(Deps{})
	for _, name := range []string{"recalc", "recalc-all", "init", "init-all", "stats", "seed"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	tz := cmd.PersistentFlags().Lookup("tz")
	require.NotNil(t, tz)
	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run(t, "stats", "run", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestInitThenRecalc(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "init", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")

	f.now = f.now.Add(24 * time.Hour)
	out, err = f.run(t, "recalc", "run", "bob", "--format", "json")
	require.NoError(t, err)

	var got map[string]*stats.ParticipantStats
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got["bob"].FailCount)

	_, err = f.run(t, "recalc", "missing", "bob")
	assert.ErrorIs(t, err, challenge.ErrChallengeNotFound)
}

func TestBatchCommands(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "init-all", "--format", "json")
	require.NoError(t, err)
	var batch engine.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Equal(t, 1, batch.Challenges)
	assert.Equal(t, 2, batch.Participants)

	f.now = f.now.Add(24 * time.Hour)
	out, err = f.run(t, "recalc-all")
	require.NoError(t, err)
	assert.Contains(t, out, "challenges=1 participants=2 failed=0")

	out, err = f.run(t, "recalc-all", "run", "--format", "json")
	require.NoError(t, err)
	var per map[string]*stats.ParticipantStats
	require.NoError(t, json.Unmarshal([]byte(out), &per))
	assert.Equal(t, 1, per["alice"].FailCount, "same-day rerun is idempotent")
}

func TestStatsCommand(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run(t, "init", "run", "alice")
	require.NoError(t, err)

	out, err := f.run(t, "stats", "run", "--tz", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "challenge run starts 2024-01-01, today pending")

	_, err = f.run(t, "stats", "run", "--tz", "900")
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	f := newCLIFixture(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
challenges:
  - id: read
    ownerId: carol
    name: Read
    startDate: "2024-01-01"
    members: [carol]
`), 0644))

	out, err := f.run(t, "seed", path)
	require.NoError(t, err)
	assert.Contains(t, out, "created=1 existing=0 initialized=1")
}
