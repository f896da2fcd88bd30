package schema

import (
	"fmt"

	"github.com/anukritich/AyushSetu/internal/domain"
)

// WHO 标准术语（ITA 编码）三个体系的默认表结构
var whoSystems = []struct {
	key     string
	scripts []string
}{
	{key: "ayurveda", scripts: []string{"sanskrit_IAST", "sanskrit_devanagari"}},
	{key: "siddha", scripts: []string{"transliteration", "native_term"}},
	{key: "unani", scripts: []string{"transliteration", "native_term"}},
}

var namasteSystems = []string{"ayurveda", "siddha", "unani"}

// DefaultWHO returns a fresh registry with the WHO terminology tables keyed by term_id.
func DefaultWHO() *Registry {
	defs := make([]domain.SchemaDefinition, 0, len(whoSystems))
	for _, s := range whoSystems {
		table := s.key + "_terminologies"
		cols := map[string]struct{}{"term_id": {}, "english_term": {}, "description": {}}
		for _, c := range s.scripts {
			cols[c] = struct{}{}
		}
		defs = append(defs, domain.SchemaDefinition{
			SystemKey:  s.key,
			TableName:  table,
			Columns:    cols,
			PrimaryKey: "term_id",
			CreateStatement: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					term_id TEXT PRIMARY KEY,
					english_term TEXT,
					description TEXT,
					%s TEXT,
					%s TEXT
				)`, table, s.scripts[0], s.scripts[1]),
		})
	}
	return NewRegistry(defs...)
}

// DefaultNAMASTE returns a fresh registry with the NAMASTE code tables keyed by code.
func DefaultNAMASTE() *Registry {
	defs := make([]domain.SchemaDefinition, 0, len(namasteSystems))
	for _, key := range namasteSystems {
		table := "namaste_" + key
		defs = append(defs, domain.SchemaDefinition{
			SystemKey:  key,
			TableName:  table,
			Columns:    map[string]struct{}{"code": {}, "english_term": {}, "description": {}},
			PrimaryKey: "code",
			CreateStatement: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					code TEXT PRIMARY KEY,
					english_term TEXT,
					description TEXT
				)`, table),
		})
	}
	return NewRegistry(defs...)
}
