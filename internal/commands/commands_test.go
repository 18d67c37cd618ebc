package commands

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TamChouWeng/my-asset-sub000/internal/assistant"
	"github.com/TamChouWeng/my-asset-sub000/internal/chatlog"
	"github.com/TamChouWeng/my-asset-sub000/internal/config"
	"github.com/TamChouWeng/my-asset-sub000/internal/ledger"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

// run executes the CLI in-process with a fixed clock.
func run(t *testing.T, today string, args ...string) (string, error) {
	t.Helper()
	now, err := time.Parse(model.DateFormat, today)
	require.NoError(t, err)

	cmd := newRootCommand(&globals{now: func() time.Time { return now }})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newProject(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	args := append([]string{"init", dir, "--name", "Test", "--no-git"}, extra...)
	_, err := run(t, "2024-03-01", args...)
	require.NoError(t, err)
	return dir
}

func listRecords(t *testing.T, dir string) []model.Record {
	t.Helper()
	records, err := ledger.NewService(dir, true).List(context.Background())
	require.NoError(t, err)
	return records
}

var addFD = []string{
	"--type=FD", "--name=Maybank FD", "--action=Deposit", "--amount=10000",
	"--rate=3.5", "--date=2024-01-01", "--maturity=2024-07-01",
}

func addArgs(dir string, flags ...string) []string {
	return append([]string{"-C", dir, "--plain", "add"}, flags...)
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := newProject(t)

	for _, d := range []string{"ledger", "logs", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	data, err := os.ReadFile(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: Test")
	assert.Contains(t, string(data), "currency: MYR")

	data, err = os.ReadFile(filepath.Join(dir, ledger.RelPath))
	require.NoError(t, err)
	assert.Equal(t, ledger.Header+"\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ".env")
}

func TestInit_RequiresName(t *testing.T) {
	_, err := run(t, "2024-03-01", "init", t.TempDir())
	require.Error(t, err, "init without --name should fail")
}

func TestInit_RefusesExistingProject(t *testing.T) {
	dir := newProject(t)
	_, err := run(t, "2024-03-01", "init", dir, "--name", "Again", "--no-git")
	assert.ErrorContains(t, err, "already exists")
}

func TestInit_GitRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	_, err := run(t, "2024-03-01", "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	log := exec.Command("git", "log", "--format=%s|%an <%ae>", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Equal(t, "init: Initialize Test Biz|myasset <myasset@localhost>", strings.TrimSpace(string(out)))

	_, err = run(t, "2024-03-01", addArgs(dir, addFD...)...)
	require.NoError(t, err)
	log = exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	out, err = log.Output()
	require.NoError(t, err)
	assert.Equal(t, "add: Fixed Deposit Maybank FD", strings.TrimSpace(string(out)))
}

func TestProjectDirFlag(t *testing.T) {
	dir := newProject(t)
	_, err := run(t, "2024-03-01", addArgs(dir, addFD...)...)
	require.NoError(t, err)

	commands := [][]string{
		{"list"},
		{"list", "--sort", "amount", "--order", "desc"},
		{"dashboard"},
		{"property"},
		{"fd"},
		{"export", "-o", "-"},
		{"import"},
		{"mature"},
		{"currency"},
	}
	for _, args := range commands {
		for _, flag := range []string{"-C", "--dir"} {
			t.Run(flag+" "+strings.Join(args, " "), func(t *testing.T) {
				_, err := run(t, "2024-03-01", append([]string{flag, dir, "--plain"}, args...)...)
				assert.NoError(t, err)
			})
		}
		t.Run(strings.Join(args, " ")+" -C", func(t *testing.T) {
			_, err := run(t, "2024-03-01", append(append([]string{}, args...), "-C", dir)...)
			assert.NoError(t, err)
		})
	}
}

func TestNoProject(t *testing.T) {
	_, err := run(t, "2024-03-01", "-C", t.TempDir(), "list")
	assert.ErrorContains(t, err, "run myasset init")
}

func TestAdd_FixedDepositInterest(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "2024-03-01", addArgs(dir, addFD...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "## Maybank FD")
	assert.Contains(t, out, "174.52")

	records := listRecords(t, dir)
	require.Len(t, records, 1)
	assert.Equal(t, model.TypeFixedDeposit, records[0].Type)
	assert.Equal(t, "174.52", records[0].InterestDividend.Decimal.StringFixed(2))
	assert.Equal(t, "MYR", records[0].Currency)
}

func TestAdd_Rejected(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, "2024-03-01", "-C", dir, "add", "--type", "Property", "--name", "Condo", "--action", "Purchase")
	assert.ErrorContains(t, err, "not a property action")

	_, err = run(t, "2024-03-01", "-C", dir, "add", "--type", "Gold", "--name", "Bar")
	assert.ErrorContains(t, err, "unknown asset type")

	_, err = run(t, "2024-03-01", "-C", dir, "add", "--type", "Stock", "--name", "X", "--date", "01/02/2024")
	assert.Error(t, err)

	assert.Empty(t, listRecords(t, dir))
}

func TestListShowEditDelete(t *testing.T) {
	dir := newProject(t)
	for _, flags := range [][]string{
		{"--type=Stock", "--name=Maybank", "--action=Buy", "--amount=500", "--date=2024-02-01"},
		{"--type=REIT", "--name=Sunway REIT", "--action=Buy", "--amount=300", "--date=2024-02-02"},
		{"--type=Stock", "--name=Apple", "--action=Buy", "--amount=50", "--date=2024-02-03"},
	} {
		_, err := run(t, "2024-03-01", addArgs(dir, flags...)...)
		require.NoError(t, err)
	}

	out, err := run(t, "2024-03-01", "-C", dir, "--plain", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Maybank")
	assert.Contains(t, out, "Page 1 of 1 (3 records)")

	out, err = run(t, "2024-03-01", "-C", dir, "--plain", "list", "--type", "REIT")
	require.NoError(t, err)
	assert.Contains(t, out, "Sunway REIT")
	assert.NotContains(t, out, "Maybank")

	out, err = run(t, "2024-03-01", "-C", dir, "--plain", "list", "--sort", "amount", "--order", "desc", "--size", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Maybank")
	assert.Contains(t, out, "Page 1 of 3")

	_, err = run(t, "2024-03-01", "-C", dir, "list", "--sort", "colour")
	assert.Error(t, err)

	var maybank, apple string
	for _, r := range listRecords(t, dir) {
		switch r.Name {
		case "Maybank":
			maybank = r.ID
		case "Apple":
			apple = r.ID
		}
	}

	out, err = run(t, "2024-03-01", "-C", dir, "--plain", "show", maybank[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "| ID | "+maybank+" |")

	out, err = run(t, "2024-03-01", "-C", dir, "--plain", "edit", maybank, "--action", "Sell", "--amount", "650", "--status", "Sold", "--remarks", "")
	require.NoError(t, err)
	assert.Contains(t, out, "| Status | Sold |")
	assert.Contains(t, out, "650.00")

	out, err = run(t, "2024-03-01", "-C", dir, "delete", maybank, apple)
	require.NoError(t, err)
	assert.Equal(t, "Deleted 2 records\n", out)

	records := listRecords(t, dir)
	require.Len(t, records, 1)
	assert.Equal(t, "Sunway REIT", records[0].Name)

	_, err = run(t, "2024-03-01", "-C", dir, "delete", maybank)
	assert.Error(t, err)
}

func TestDashboardAndReports(t *testing.T) {
	dir := newProject(t)
	for _, flags := range [][]string{
		addFD,
		{"--type=Property", "--name=Condo", "--action=Downpayment", "--amount=50000", "--date=2024-01-10"},
		{"--type=Property", "--name=Condo", "--action=Rent", "--amount=1800", "--date=2024-02-10"},
	} {
		_, err := run(t, "2024-03-01", addArgs(dir, flags...)...)
		require.NoError(t, err)
	}

	out, err := run(t, "2024-03-01", "-C", dir, "--plain", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "# Portfolio (MYR)")
	assert.Contains(t, out, "Fixed Deposit")

	out, err = run(t, "2024-03-01", "-C", dir, "--plain", "property", "Condo")
	require.NoError(t, err)
	assert.Contains(t, out, "# Condo (MYR)")
	assert.Contains(t, out, "50,000.00")

	out, err = run(t, "2024-03-01", "-C", dir, "--plain", "fd")
	require.NoError(t, err)
	assert.Contains(t, out, "174.52")
	assert.Contains(t, out, "3.5%")
}

func TestMature(t *testing.T) {
	dir := newProject(t)
	_, err := run(t, "2024-03-01", addArgs(dir, addFD...)...)
	require.NoError(t, err)

	out, err := run(t, "2024-03-01", "-C", dir, "mature")
	require.NoError(t, err)
	assert.Equal(t, "No fixed deposits matured\n", out)

	out, err = run(t, "2024-08-01", "-C", dir, "mature")
	require.NoError(t, err)
	assert.Contains(t, out, "Matured")
	assert.Contains(t, out, "Maybank FD (MYR)")
	assert.Equal(t, model.StatusMature, listRecords(t, dir)[0].Status)

	out, err = run(t, "2024-08-02", "-C", dir, "mature")
	require.NoError(t, err)
	assert.Equal(t, "No fixed deposits matured\n", out)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newProject(t)
	for _, flags := range [][]string{
		addFD,
		{"--type=Stock", "--name=Maybank", "--action=Buy", "--amount=500", "--date=2024-02-01", "--remarks=long term"},
	} {
		_, err := run(t, "2024-03-01", addArgs(src, flags...)...)
		require.NoError(t, err)
	}
	file := filepath.Join(t.TempDir(), "history.csv")
	out, err := run(t, "2024-03-01", "-C", src, "export", "-o", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 records")

	dst := newProject(t)
	out, err = run(t, "2024-03-01", "-C", dst, "--plain", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows, 0 duplicates")
	assert.Empty(t, listRecords(t, dst), "preview must not insert")

	out, err = run(t, "2024-03-01", "-C", dst, "--plain", "import", "--commit", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 records, skipped 0 duplicates")

	records := listRecords(t, dst)
	require.Len(t, records, 2)
	for _, r := range records {
		if r.Type == model.TypeFixedDeposit {
			assert.Equal(t, "3.5", r.InterestRate.Decimal.String())
			assert.Equal(t, "174.52", r.InterestDividend.Decimal.StringFixed(2))
		} else {
			assert.Equal(t, "long term", r.Remarks)
		}
	}

	out, err = run(t, "2024-03-01", "-C", dst, "--plain", "import", "--commit", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 records, skipped 2 duplicates")
	assert.Len(t, listRecords(t, dst), 2)
}

func TestExport_Stdout(t *testing.T) {
	dir := newProject(t)
	out, err := run(t, "2024-03-01", "-C", dir, "export", "-o", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `"Date","Type","Name"`))
}

func TestImport_ScansImportDir(t *testing.T) {
	src := newProject(t)
	_, err := run(t, "2024-03-01", addArgs(src, addFD...)...)
	require.NoError(t, err)

	dst := newProject(t)
	file := filepath.Join(dst, "import", "history.csv")
	_, err = run(t, "2024-03-01", "-C", src, "export", "-o", file)
	require.NoError(t, err)

	out, err := run(t, "2024-03-01", "-C", dst, "--plain", "import", "--commit")
	require.NoError(t, err)
	assert.Contains(t, out, "history.csv")
	assert.Len(t, listRecords(t, dst), 1)

	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err), "imported file should be moved")
	_, err = os.Stat(filepath.Join(dst, "import", "processed", "history.csv"))
	assert.NoError(t, err)

	out, err = run(t, "2024-03-01", "-C", dst, "import")
	require.NoError(t, err)
	assert.Equal(t, "No CSV files in import/\n", out)
}

func TestImport_BadFileInsertsNothing(t *testing.T) {
	dir := newProject(t)
	file := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(file, []byte("a,b,c\n"), 0o644))

	_, err := run(t, "2024-03-01", "-C", dir, "import", "--commit", file)
	assert.Error(t, err)
	assert.Empty(t, listRecords(t, dir))
}

func TestCurrency(t *testing.T) {
	dir := newProject(t)
	_, err := run(t, "2024-03-01", addArgs(dir, "--type=Stock", "--name=Apple", "--action=Buy", "--amount=50", "--date=2024-02-03")...)
	require.NoError(t, err)

	out, err := run(t, "2024-03-01", "-C", dir, "currency")
	require.NoError(t, err)
	assert.Equal(t, "Currency: MYR\nAvailable: MYR\n", out)

	out, err = run(t, "2024-03-01", "-C", dir, "currency", "usd")
	require.NoError(t, err)
	assert.Equal(t, "Currency set to USD\n", out)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Preferences.Currency)

	out, err = run(t, "2024-03-01", "-C", dir, "--plain", "list")
	require.NoError(t, err)
	assert.Equal(t, "No records.\n", out, "MYR records are not in the USD partition")

	_, err = run(t, "2024-03-01", "-C", dir, "currency", "dollars")
	assert.Error(t, err)
}

func TestMigrateRemarks(t *testing.T) {
	dir := newProject(t)
	legacy := ledger.Header + "\n" +
		"s-1,2024-01-01,Stock,Maybank,Buy,500,,,,,,,Active,MYR,Q1 [Rate: 5.1%]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ledger.RelPath), []byte(legacy), 0o644))

	out, err := run(t, "2024-03-01", "-C", dir, "migrate-remarks")
	require.NoError(t, err)
	assert.Contains(t, out, "rewrote 1 without tags")

	data, err := os.ReadFile(filepath.Join(dir, ledger.RelPath))
	require.NoError(t, err)
	assert.Equal(t, ledger.Header+"\n"+"s-1,2024-01-01,Stock,Maybank,Buy,500,,,,5.1,,,Active,MYR,Q1\n", string(data))

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.False(t, cfg.Storage.RemarksTags)
}

func TestSQLiteBackend(t *testing.T) {
	dir := newProject(t, "--backend", "sqlite")
	_, err := os.Stat(filepath.Join(dir, "data", "myasset.db"))
	require.NoError(t, err)

	_, err = run(t, "2024-03-01", addArgs(dir, addFD...)...)
	require.NoError(t, err)

	out, err := run(t, "2024-03-01", "-C", dir, "--plain", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Maybank FD")
	assert.Contains(t, out, "(1 records)")
}

type fakeChat struct{ asked []string }

func (c *fakeChat) Send(_ context.Context, message string) (string, error) {
	c.asked = append(c.asked, message)
	return "You hold **RM10,174.52**.", nil
}

type fakeClient struct {
	chat   *fakeChat
	system string
}

func (c *fakeClient) Start(_ context.Context, _, system string) (assistant.Chat, error) {
	c.system = system
	return c.chat, nil
}

func TestAssist(t *testing.T) {
	dir := newProject(t)
	_, err := run(t, "2024-03-01", addArgs(dir, addFD...)...)
	require.NoError(t, err)

	client := &fakeClient{chat: &fakeChat{}}
	prev := newChatClient
	newChatClient = func(context.Context, string, []assistant.Tool) (assistant.Client, error) { return client, nil }
	t.Cleanup(func() { newChatClient = prev })
	t.Setenv(config.EnvAPIKey, "test-key")

	out, err := run(t, "2024-03-01", "-C", dir, "--plain", "assist", "what", "do", "I", "hold?")
	require.NoError(t, err)
	assert.Contains(t, out, "RM10,174.52")
	assert.Equal(t, []string{"what do I hold?"}, client.chat.asked)
	assert.Contains(t, client.system, "Fixed Deposit")

	entries, err := chatlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, chatlog.RoleUser, entries[0].Role)
	assert.Equal(t, chatlog.RoleModel, entries[1].Role)
}

func TestAssist_NoKey(t *testing.T) {
	dir := newProject(t)
	t.Setenv(config.EnvAPIKey, "")
	_, err := run(t, "2024-03-01", "-C", dir, "assist", "hello")
	assert.ErrorContains(t, err, config.EnvAPIKey)
}
