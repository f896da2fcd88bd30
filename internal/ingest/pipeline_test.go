package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/anukritich/AyushSetu/internal/domain"
	"github.com/anukritich/AyushSetu/internal/repository"
	"github.com/anukritich/AyushSetu/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func rows(t *testing.T, repo *repository.MemoryTermTablesRepo, reg *schema.Registry, system string) []domain.Row {
	t.Helper()
	def, err := reg.Get(system)
	require.NoError(t, err)
	out, err := repo.ListRows(context.Background(), def)
	require.NoError(t, err)
	return out
}

func fileReport(t *testing.T, report *domain.RunReport, name string) domain.FileReport {
	t.Helper()
	for _, f := range report.Files {
		if f.File == name {
			return f
		}
	}
	t.Fatalf("no report for %s", name)
	return domain.FileReport{}
}

func TestBuild_MissingFolder(t *testing.T) {
	p := New(repository.NewMemoryTermTablesRepo(), zap.NewNop())

	_, err := p.Build(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dir := t.TempDir()
	writeFile(t, dir, "file.json", "[]")
	_, err = p.Build(context.Background(), filepath.Join(dir, "file.json"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuild_EmptyFolderEnsuresTables(t *testing.T) {
	repo := repository.NewMemoryTermTablesRepo()
	p := New(repo, zap.NewNop())

	report, err := p.Build(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, report.Files)
	assert.Equal(t, "memory", report.Target)
	assert.NotEmpty(t, report.RunID)
	assert.ElementsMatch(t, []string{"ayurveda_terminologies", "siddha_terminologies", "unani_terminologies"}, repo.Tables())
}

func TestBuild_MixedFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ayurveda_terms.json", `[
		{"term_id":"A1","english_term":"Fever","description":"high temperature","sanskrit_IAST":"jvara","unexpected_field":"y"},
		{"term_id":"A2","english_term":"Cough"},
		{"english_term":"no id"},
		{"unexpected_field":"only"},
		42
	]`)
	writeFile(t, dir, "ITA_Siddha.json", `{"term_id":"S1","english_term":"Vatham","native_term":"வாதம்"}`)
	writeFile(t, dir, "unani_broken.json", `[{"term_id":"U1",`)
	writeFile(t, dir, "unani_scalar.json", `"just a string"`)
	writeFile(t, dir, "random.json", `[{"term_id":"R1"}]`)
	writeFile(t, dir, "notes.txt", "ignored")

	repo := repository.NewMemoryTermTablesRepo()
	reg := schema.DefaultWHO()
	p := New(repo, zap.NewNop(), WithRegistry(reg))

	report, err := p.Build(context.Background(), dir)
	require.NoError(t, err)

	names := make([]string, 0, len(report.Files))
	for _, f := range report.Files {
		names = append(names, f.File)
	}
	assert.Equal(t, []string{"ITA_Siddha.json", "ayurveda_terms.json", "random.json", "unani_broken.json", "unani_scalar.json"}, names)

	ay := fileReport(t, report, "ayurveda_terms.json")
	assert.Equal(t, domain.OutcomeImported, ay.Outcome)
	assert.Equal(t, "ayurveda", ay.System)
	assert.Equal(t, "ayurveda_terminologies", ay.Table)
	assert.Equal(t, 4, ay.Records)
	assert.Equal(t, 2, ay.Written)
	assert.Equal(t, 1, ay.Empty)
	assert.Equal(t, 1, ay.MissingPK)

	assert.Equal(t, domain.OutcomeSkippedUnrecognized, fileReport(t, report, "random.json").Outcome)
	assert.Equal(t, domain.OutcomeSkippedMalformed, fileReport(t, report, "unani_broken.json").Outcome)
	assert.Equal(t, domain.OutcomeSkippedMalformed, fileReport(t, report, "unani_scalar.json").Outcome)
	assert.Equal(t, 3, report.RowsWritten())
	assert.Equal(t, 2, report.Count(domain.OutcomeImported))

	ayRows := rows(t, repo, reg, "ayurveda")
	require.Len(t, ayRows, 2)
	assert.Equal(t, domain.Row{
		"term_id":             "A1",
		"english_term":        "Fever",
		"description":         "high temperature",
		"sanskrit_IAST":       "jvara",
		"sanskrit_devanagari": nil,
	}, ayRows[0])
	assert.Equal(t, "A2", ayRows[1]["term_id"])
	assert.Nil(t, ayRows[1]["description"])

	siRows := rows(t, repo, reg, "siddha")
	require.Len(t, siRows, 1)
	assert.Equal(t, "வாதம்", siRows[0]["native_term"])

	assert.Empty(t, rows(t, repo, reg, "unani"))
}

func TestBuild_WhitelistProjection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ayurveda.json", `[{"term_id":"X1","english_term":"x","unexpected_field":"y"}]`)

	repo := repository.NewMemoryTermTablesRepo()
	reg := schema.DefaultWHO()
	_, err := New(repo, zap.NewNop(), WithRegistry(reg)).Build(context.Background(), dir)
	require.NoError(t, err)

	got := rows(t, repo, reg, "ayurveda")
	require.Len(t, got, 1)
	assert.NotContains(t, got[0], "unexpected_field")
	assert.Equal(t, "X1", got[0]["term_id"])
	assert.Equal(t, "x", got[0]["english_term"])
	for _, col := range []string{"description", "sanskrit_IAST", "sanskrit_devanagari"} {
		assert.Nil(t, got[0][col], col)
	}
}

func TestBuild_NonStringValuesStoredAsText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ayurveda.json", `[{"term_id":101,"english_term":true,"description":{"a":[1,2]}}]`)

	repo := repository.NewMemoryTermTablesRepo()
	reg := schema.DefaultWHO()
	_, err := New(repo, zap.NewNop(), WithRegistry(reg)).Build(context.Background(), dir)
	require.NoError(t, err)

	got := rows(t, repo, reg, "ayurveda")
	require.Len(t, got, 1)
	assert.Equal(t, "101", got[0]["term_id"])
	assert.Equal(t, "true", got[0]["english_term"])
	assert.Equal(t, `{"a":[1,2]}`, got[0]["description"])
}

func TestBuild_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ayurveda.json", `[{"term_id":"A1","english_term":"Fever"},{"term_id":"A2","english_term":"Cough"}]`)
	writeFile(t, dir, "unani.json", `[{"term_id":"U1","english_term":"Humma"}]`)

	repo := repository.NewMemoryTermTablesRepo()
	reg := schema.DefaultWHO()
	p := New(repo, zap.NewNop(), WithRegistry(reg))

	_, err := p.Build(context.Background(), dir)
	require.NoError(t, err)
	first := rows(t, repo, reg, "ayurveda")

	second, err := p.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, first, rows(t, repo, reg, "ayurveda"))
	assert.Len(t, rows(t, repo, reg, "unani"), 1)
	assert.Equal(t, 3, second.RowsWritten())
}

func TestBuild_ReimportReplacesRow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ayurveda.json", `[{"term_id":"A1","english_term":"Fever","description":"old"}]`)

	repo := repository.NewMemoryTermTablesRepo()
	reg := schema.DefaultWHO()
	p := New(repo, zap.NewNop(), WithRegistry(reg))
	_, err := p.Build(context.Background(), dir)
	require.NoError(t, err)

	writeFile(t, dir, "ayurveda.json", `[{"term_id":"A1","english_term":"Jvara"}]`)
	_, err = p.Build(context.Background(), dir)
	require.NoError(t, err)

	got := rows(t, repo, reg, "ayurveda")
	require.Len(t, got, 1)
	assert.Equal(t, "Jvara", got[0]["english_term"])
	assert.Nil(t, got[0]["description"])
}

func TestBuild_DuplicateKeysLastWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ayurveda_a.json", `[{"term_id":"A1","english_term":"first"}]`)
	writeFile(t, dir, "ayurveda_b.json", `[{"term_id":"A1","english_term":"second"},{"term_id":"A1","english_term":"third"}]`)

	repo := repository.NewMemoryTermTablesRepo()
	reg := schema.DefaultWHO()
	_, err := New(repo, zap.NewNop(), WithRegistry(reg), WithWorkers(2)).Build(context.Background(), dir)
	require.NoError(t, err)

	got := rows(t, repo, reg, "ayurveda")
	require.Len(t, got, 1)
	assert.Equal(t, "third", got[0]["english_term"])
}

func TestRegister_NewSystem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "homeopathy_terms.json", `[{"term_id":"H1","english_term":"Arnica","potency":"30C"}]`)

	repo := repository.NewMemoryTermTablesRepo()
	p := New(repo, zap.NewNop())

	report, err := p.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkippedUnrecognized, report.Files[0].Outcome)

	require.NoError(t, p.Register("homeopathy", "homeopathy_terminologies",
		[]string{"term_id", "english_term", "potency"},
		"CREATE TABLE IF NOT EXISTS homeopathy_terminologies (term_id TEXT PRIMARY KEY, english_term TEXT, potency TEXT)"))

	report, err = p.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeImported, report.Files[0].Outcome)

	var def domain.SchemaDefinition
	for _, d := range p.Definitions() {
		if d.SystemKey == "homeopathy" {
			def = d
		}
	}
	require.Equal(t, "homeopathy_terminologies", def.TableName)
	got, err := repo.ListRows(context.Background(), def)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "30C", got[0]["potency"])
}

func TestRegister_Invalid(t *testing.T) {
	p := New(repository.NewMemoryTermTablesRepo(), zap.NewNop())
	assert.Error(t, p.Register("", "t", []string{"term_id"}, "CREATE TABLE t (term_id TEXT PRIMARY KEY)"))
	assert.Error(t, p.Register("x", "t", nil, "CREATE TABLE t (term_id TEXT PRIMARY KEY)"))
	assert.Len(t, p.Definitions(), 3)
}

func TestRegister_IsolatedBetweenPipelines(t *testing.T) {
	base := schema.DefaultWHO()
	a := New(repository.NewMemoryTermTablesRepo(), zap.NewNop(), WithRegistry(base))
	b := New(repository.NewMemoryTermTablesRepo(), zap.NewNop(), WithRegistry(base))

	require.NoError(t, a.Register("sowa", "sowa_terminologies", []string{"term_id"},
		"CREATE TABLE IF NOT EXISTS sowa_terminologies (term_id TEXT PRIMARY KEY)"))

	assert.Len(t, a.Definitions(), 4)
	assert.Len(t, b.Definitions(), 3)
	assert.Len(t, base.Keys(), 3)
}

func TestBuild_TabularNAMASTE(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	data := [][]any{
		{"Sr No", "NAMC_CODE", "NAMC_term", "Short_definition"},
		{"1", "AAA-1", "vAtajvara", "fever due to vata"},
		{"2", "AAA-2", "pittajvara"},
		{"3", "", "orphan"},
	}
	for i, r := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "NAMASTE_Ayurveda.xlsx")))
	require.NoError(t, f.Close())

	writeFile(t, dir, "unani_codes.csv", "\ufeffNUMC_CODE,NUMC_TERM,Definition\nU-1,humma,fever\n")

	repo := repository.NewMemoryTermTablesRepo()
	reg := schema.DefaultNAMASTE()
	report, err := New(repo, zap.NewNop(), WithRegistry(reg), WithTabular(true)).Build(context.Background(), dir)
	require.NoError(t, err)

	xl := fileReport(t, report, "NAMASTE_Ayurveda.xlsx")
	assert.Equal(t, domain.OutcomeImported, xl.Outcome)
	assert.Equal(t, 2, xl.Written)
	assert.Equal(t, 1, xl.MissingPK)

	ay := rows(t, repo, reg, "ayurveda")
	require.Len(t, ay, 2)
	assert.Equal(t, domain.Row{"code": "AAA-1", "english_term": "vAtajvara", "description": "fever due to vata"}, ay[0])
	assert.Equal(t, domain.Row{"code": "AAA-2", "english_term": "pittajvara", "description": nil}, ay[1])

	un := rows(t, repo, reg, "unani")
	require.Len(t, un, 1)
	assert.Equal(t, domain.Row{"code": "U-1", "english_term": "humma", "description": "fever"}, un[0])
}

func TestBuild_TabularDisabledIgnoresSheets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "unani_codes.csv", "NUMC_CODE,NUMC_TERM\nU-1,humma\n")

	report, err := New(repository.NewMemoryTermTablesRepo(), zap.NewNop(),
		WithRegistry(schema.DefaultNAMASTE())).Build(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, report.Files)
}

func TestBuild_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ayurveda.json", `[{"term_id":"A1","english_term":"Fever"}]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := repository.NewMemoryTermTablesRepo()
	reg := schema.DefaultWHO()
	_, err := New(repo, zap.NewNop(), WithRegistry(reg)).Build(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProject(t *testing.T) {
	def, err := schema.DefaultWHO().Get("ayurveda")
	require.NoError(t, err)

	_, err = project(def, map[string]any{"unexpected_field": "y"})
	assert.ErrorIs(t, err, domain.ErrEmptyProjection)

	row, err := project(def, map[string]any{"term_id": json.Number("7"), "unexpected_field": "y"})
	require.NoError(t, err)
	assert.Equal(t, domain.Row{"term_id": "7"}, row)
}
