package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/keyring"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/repositories/memory"
	"github.com/dmitrijs2005/gophvault/internal/vault"
)

const testSecret = "correct-horse"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StoreDriver = "memory"
	cfg.DatabaseDSN = ""
	cfg.IdleLockTimeout = 0
	return cfg
}

// testRepo keeps the memory store readable after Run has closed the vault
// and counts Close calls.
type testRepo struct {
	*memory.Repository
	closes   int
	closeErr error
}

func (r *testRepo) Close() error {
	r.closes++
	return r.closeErr
}

// newTestApp builds an App over a memory store with piped (non-terminal)
// input and no clipboard.
func newTestApp(t *testing.T, cfg *config.Config, input string) (*App, *testRepo) {
	t.Helper()
	withTerminal(t, false, nil, nil)
	withClipboard(t, nil)

	repo := &testRepo{Repository: memory.NewRepository()}
	v, err := vault.New(context.Background(), repo, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	return newApp(cfg, v, logging.NewNop(), strings.NewReader(input), &bytes.Buffer{}), repo
}

func lines(l ...string) string {
	return strings.Join(l, "\n") + "\n"
}

func TestApp_FullSession(t *testing.T) {
	out := captureOutput(t)

	app, _ := newTestApp(t, testConfig(), lines(
		"setup", testSecret, testSecret,
		"add", // usage
		"unlock", testSecret,
		"add github", "s3cr3t!",
		"unlock", "wrong-guess",
		"get github",
		"update github", "n3w-s3cr3t",
		"get github",
		"add mail", "",
		"list",
		"delete mail", "y",
		"list",
		"lock",
		"get github",
		"exit",
	))

	require.NoError(t, app.Run(context.Background()))

	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "No vault found")
	assert.Contains(t, joined, "Vault created")
	assert.Contains(t, joined, "Stored github")
	assert.Contains(t, joined, "Wrong master secret.")
	assert.Contains(t, joined, "s3cr3t!")
	assert.Contains(t, joined, "Updated github")
	assert.Contains(t, joined, "n3w-s3cr3t")
	assert.Contains(t, joined, "Generated password:")
	assert.Contains(t, joined, "Deleted mail")
	assert.Contains(t, joined, describeError(common.ErrorNotUnlocked))
	assert.Equal(t, vault.StateLocked, app.vault.State())
}

// "add github" before unlock must not consume the next line as a secret.
func TestApp_AddWhileLockedDoesNotPrompt(t *testing.T) {
	out := captureOutput(t)

	app, repo := newTestApp(t, testConfig(), lines(
		"setup", testSecret, testSecret,
		"add github",
		"list",
	))
	require.NoError(t, app.Run(context.Background()))

	services, err := repo.ListServices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, services)
	assert.Equal(t, 2, strings.Count(strings.Join(*out, "\n"), describeError(common.ErrorNotUnlocked)))
	assert.Equal(t, 1, repo.closes)
}

func TestApp_RunReturnsCloseError(t *testing.T) {
	captureOutput(t)
	errDisk := errors.New("disk gone")

	app, repo := newTestApp(t, testConfig(), lines("exit"))
	repo.closeErr = errDisk

	err := app.Run(context.Background())
	require.ErrorIs(t, err, common.ErrorStorage)
	require.ErrorIs(t, err, errDisk)
	assert.Equal(t, 1, repo.closes)
}

func TestApp_ListVerboseShowsCiphertextSizes(t *testing.T) {
	out := captureOutput(t)
	ctx := context.Background()

	app, repo := newTestApp(t, testConfig(), "")
	require.ErrorIs(t, app.List(ctx, true), common.ErrorNotUnlocked)

	require.NoError(t, app.vault.Setup(ctx, []byte(testSecret), []byte(testSecret)))
	require.NoError(t, app.vault.Unlock(ctx, []byte(testSecret)))

	require.NoError(t, app.List(ctx, true))
	assert.Equal(t, []string{"No credentials stored."}, *out)

	require.NoError(t, app.vault.Store(ctx, "github", "s3cr3t!"))
	require.NoError(t, app.vault.Store(ctx, "mail", "hunter2"))
	*out = nil

	require.NoError(t, app.List(ctx, true))

	var want []string
	for _, s := range []string{"github", "mail"} {
		ct, err := repo.GetCredential(ctx, s)
		require.NoError(t, err)
		want = append(want, fmt.Sprintf("%s\t%d bytes", s, len(ct)))
	}
	assert.Equal(t, want, *out)
	for _, line := range *out {
		assert.NotContains(t, line, "s3cr3t!")
		assert.NotContains(t, line, "hunter2")
	}
}

func TestApp_SetupMismatch(t *testing.T) {
	out := captureOutput(t)

	app, _ := newTestApp(t, testConfig(), lines("setup", testSecret, "other"))
	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, strings.Join(*out, "\n"), "Invalid input")
	assert.Equal(t, vault.StateUninitialized, app.vault.State())
}

func TestApp_DeleteCancelled(t *testing.T) {
	captureOutput(t)
	ctx := context.Background()

	app, _ := newTestApp(t, testConfig(), lines("n"))
	require.NoError(t, app.vault.Setup(ctx, []byte(testSecret), []byte(testSecret)))
	require.NoError(t, app.vault.Unlock(ctx, []byte(testSecret)))
	require.NoError(t, app.vault.Store(ctx, "mail", "a"))

	require.NoError(t, app.Delete(ctx, "mail"))

	got, err := app.vault.Retrieve(ctx, "mail")
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

func TestApp_GeneratorsAndStrength(t *testing.T) {
	out := captureOutput(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.PasswordLength = 24
	app, _ := newTestApp(t, cfg, lines("Tr0ub4dor&3-horse-battery"))
	require.NoError(t, app.vault.Setup(ctx, []byte(testSecret), []byte(testSecret)))
	require.NoError(t, app.vault.Unlock(ctx, []byte(testSecret)))

	require.NoError(t, app.Generate(ctx, 0))
	require.Len(t, *out, 1)
	assert.Len(t, (*out)[0], 24)

	require.NoError(t, app.Passphrase(ctx, 5))
	assert.GreaterOrEqual(t, strings.Count((*out)[1], "-"), 4)

	require.NoError(t, app.Strength(ctx))
	assert.Contains(t, (*out)[2], "Score")

	err := app.Generate(ctx, 3)
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestApp_VerifyReportsTamperedRecords(t *testing.T) {
	out := captureOutput(t)
	ctx := context.Background()

	app, repo := newTestApp(t, testConfig(), "")
	require.NoError(t, app.vault.Setup(ctx, []byte(testSecret), []byte(testSecret)))
	require.NoError(t, app.vault.Unlock(ctx, []byte(testSecret)))
	require.NoError(t, app.vault.Store(ctx, "github", "s3cr3t!"))
	require.NoError(t, app.vault.Store(ctx, "mail", "hunter2"))

	require.NoError(t, app.Verify(ctx))
	assert.Contains(t, *out, "All records passed the integrity check.")

	ct, err := repo.GetCredential(ctx, "mail")
	require.NoError(t, err)
	ct[0] ^= 0xff
	_, err = repo.UpdateCredential(ctx, "mail", ct)
	require.NoError(t, err)

	require.NoError(t, app.Verify(ctx))
	assert.Contains(t, *out, "1 record(s) failed the integrity check:")
	assert.Contains(t, *out, "  mail")

	err = app.Get(ctx, "mail")
	require.ErrorIs(t, err, common.ErrorIntegrity)
}

func TestApp_KeyringRememberAndAutoUnlock(t *testing.T) {
	gokeyring.MockInit()
	out := captureOutput(t)
	ctx := context.Background()

	cfg := testConfig()
	app, repo := newTestApp(t, cfg, lines(testSecret))
	require.NoError(t, app.vault.Setup(ctx, []byte(testSecret), []byte(testSecret)))

	require.NoError(t, app.Remember(ctx))
	assert.True(t, keyring.HasSecret(app.account))
	assert.Equal(t, vault.StateUnlocked, app.vault.State())

	// A second app on the same store picks the secret up at start.
	cfg2 := testConfig()
	cfg2.UseKeyring = true
	v2, err := vault.New(ctx, repo, logging.NewNop())
	require.NoError(t, err)
	app2 := newApp(cfg2, v2, logging.NewNop(), strings.NewReader("exit\n"), &bytes.Buffer{})

	require.NoError(t, app2.Run(ctx))
	assert.Contains(t, *out, "Vault unlocked from keyring.")

	require.NoError(t, app.Forget(ctx))
	assert.False(t, keyring.HasSecret(app.account))
}

func TestApp_RememberReportsReplacedEntry(t *testing.T) {
	gokeyring.MockInit()
	out := captureOutput(t)
	ctx := context.Background()

	app, _ := newTestApp(t, testConfig(), lines(testSecret, testSecret))
	require.NoError(t, app.vault.Setup(ctx, []byte(testSecret), []byte(testSecret)))

	require.NoError(t, app.Remember(ctx))
	require.NoError(t, app.Remember(ctx))

	assert.Equal(t, []string{
		"Master secret saved to the OS keyring.",
		"Master secret in the OS keyring replaced.",
	}, *out)
}

func TestApp_StaleKeyringEntryRemoved(t *testing.T) {
	gokeyring.MockInit()
	out := captureOutput(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.UseKeyring = true
	app, _ := newTestApp(t, cfg, "exit\n")
	require.NoError(t, app.vault.Setup(ctx, []byte(testSecret), []byte(testSecret)))
	require.NoError(t, keyring.SaveSecret(app.account, []byte("old-secret")))

	require.NoError(t, app.Run(ctx))

	assert.Contains(t, *out, "Cached master secret is out of date and was removed.")
	assert.False(t, keyring.HasSecret(app.account))
}

func TestApp_UnlockCachesSecretWhenKeyringEnabled(t *testing.T) {
	gokeyring.MockInit()
	captureOutput(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.UseKeyring = true
	app, _ := newTestApp(t, cfg, lines(testSecret))
	require.NoError(t, app.vault.Setup(ctx, []byte(testSecret), []byte(testSecret)))

	require.NoError(t, app.Unlock(ctx))
	got, err := keyring.GetSecret(app.account)
	require.NoError(t, err)
	assert.Equal(t, []byte(testSecret), got)
}

func TestApp_LockIfIdle(t *testing.T) {
	captureOutput(t)
	ctx := context.Background()

	var mu sync.Mutex
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	origNow := now
	now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	t.Cleanup(func() { now = origNow })
	advance := func(d time.Duration) {
		mu.Lock()
		current = current.Add(d)
		mu.Unlock()
	}

	app, _ := newTestApp(t, testConfig(), "")
	require.NoError(t, app.vault.Setup(ctx, []byte(testSecret), []byte(testSecret)))
	require.NoError(t, app.vault.Unlock(ctx, []byte(testSecret)))
	app.touch()

	advance(30 * time.Second)
	assert.False(t, app.lockIfIdle(ctx, time.Minute))
	assert.Equal(t, vault.StateUnlocked, app.vault.State())

	advance(31 * time.Second)
	assert.True(t, app.lockIfIdle(ctx, time.Minute))
	assert.Equal(t, vault.StateLocked, app.vault.State())

	assert.False(t, app.lockIfIdle(ctx, time.Minute))
}

func TestApp_StartIdleLockerStopsOnCancel(t *testing.T) {
	captureOutput(t)
	app, _ := newTestApp(t, testConfig(), "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.StartIdleLocker(ctx, time.Minute)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("idle locker did not stop")
	}
}

func TestNewApp_MemoryStore(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(), logging.NewNop())
	require.NoError(t, err)
	defer app.vault.Close()

	assert.Equal(t, vault.StateUninitialized, app.state())
	assert.Equal(t, "uninitialized", app.getStatus())
}

func TestNewApp_BadDriver(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = "mongo"

	_, err := NewApp(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
}
