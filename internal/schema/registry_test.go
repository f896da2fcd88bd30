package schema

import (
	"errors"
	"testing"

	"github.com/anukritich/AyushSetu/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homeopathyDDL = `
	CREATE TABLE IF NOT EXISTS homeopathy_terminologies (
		term_id TEXT PRIMARY KEY,
		english_term TEXT,
		description TEXT
	)`

func TestDefaultWHO(t *testing.T) {
	reg := DefaultWHO()
	assert.Equal(t, []string{"ayurveda", "siddha", "unani"}, reg.Keys())

	def, err := reg.Get("Ayurveda")
	require.NoError(t, err)
	assert.Equal(t, "ayurveda_terminologies", def.TableName)
	assert.Equal(t, "term_id", def.PrimaryKey)
	assert.True(t, def.HasColumn("sanskrit_IAST"))
	assert.False(t, def.HasColumn("native_term"))

	siddha, err := reg.Get("siddha")
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "english_term", "native_term", "term_id", "transliteration"}, siddha.ColumnList())
}

func TestDefaultNAMASTE(t *testing.T) {
	def, err := DefaultNAMASTE().Get("unani")
	require.NoError(t, err)
	assert.Equal(t, "namaste_unani", def.TableName)
	assert.Equal(t, "code", def.PrimaryKey)
}

func TestGet_NotFound(t *testing.T) {
	_, err := DefaultWHO().Get("homeopathy")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegister_OverwritesAndInfersPrimaryKey(t *testing.T) {
	reg := DefaultWHO()
	require.NoError(t, reg.Register("Homeopathy", "homeopathy_terminologies",
		[]string{"term_id", "english_term", "description"}, homeopathyDDL))

	def, err := reg.Get("homeopathy")
	require.NoError(t, err)
	assert.Equal(t, "term_id", def.PrimaryKey)
	assert.Equal(t, "homeopathy_terminologies", def.TableName)

	require.NoError(t, reg.Register("homeopathy", "homeopathy_v2",
		[]string{"code", "english_term"}, "CREATE TABLE IF NOT EXISTS homeopathy_v2 (code TEXT PRIMARY KEY, english_term TEXT)"))
	def, err = reg.Get("homeopathy")
	require.NoError(t, err)
	assert.Equal(t, "homeopathy_v2", def.TableName)
	assert.Equal(t, "code", def.PrimaryKey)
}

func TestRegister_Validation(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register("", "t", []string{"term_id"}, homeopathyDDL))
	assert.Error(t, reg.Register("x", "", []string{"term_id"}, homeopathyDDL))
	assert.Error(t, reg.Register("x", "t", nil, homeopathyDDL))
	assert.Error(t, reg.Register("x", "t", []string{"term_id"}, "  "))
	// primary key outside the whitelist
	assert.Error(t, reg.Register("x", "t", []string{"english_term"}, homeopathyDDL))
	assert.Empty(t, reg.Keys())
}

func TestRegistriesAreIsolated(t *testing.T) {
	a := DefaultWHO()
	b := DefaultWHO()
	clone := a.Clone()

	require.NoError(t, a.Register("homeopathy", "homeopathy_terminologies",
		[]string{"term_id", "english_term", "description"}, homeopathyDDL))

	assert.Contains(t, a.Keys(), "homeopathy")
	assert.NotContains(t, b.Keys(), "homeopathy")
	assert.NotContains(t, clone.Keys(), "homeopathy")
}

func TestGet_ReturnsCopy(t *testing.T) {
	reg := DefaultWHO()
	def, err := reg.Get("ayurveda")
	require.NoError(t, err)
	delete(def.Columns, "description")

	again, err := reg.Get("ayurveda")
	require.NoError(t, err)
	assert.True(t, again.HasColumn("description"))
}
