package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"market_data/internal/feature/instruments/domain/entity"
	"market_data/internal/feature/instruments/usecase"
)

// FileSource は銘柄キーをJSONまたはYAMLファイルから読み込むKeySource実装です。
//
// 対応する形式:
//   - JSON: [{"instrument_key": "..."}] または ["..."]
//   - JSON: {"instrumentKeys": [...]} / {"keys": [...]}、それ以外のオブジェクトは全配列の文字列要素
//   - YAML (.yaml/.yml): ["..."] / [{instrument_key: ...}] / {instrument_keys: [...]}
type FileSource struct {
	fs   afero.Fs
	path string
}

var _ usecase.KeySource = (*FileSource)(nil)

// NewFileSource creates a FileSource reading path from fs.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

// Load reads and parses the file. Ordering follows the file; callers normalize.
func (s *FileSource) Load(_ context.Context) ([]string, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		return parseYAML(b)
	default:
		return parseJSON(b)
	}
}

func parseJSON(b []byte) ([]string, error) {
	var root any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUnsupportedFormat, err)
	}

	switch v := root.(type) {
	case []any:
		return keysFromList(v), nil
	case map[string]any:
		for _, field := range []string{"instrumentKeys", "keys"} {
			if list, ok := v[field].([]any); ok {
				return keysFromList(list), nil
			}
		}
		// どちらもなければ全配列フィールドの文字列要素（フィールド名順）
		fields := make([]string, 0, len(v))
		for k := range v {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		var out []string
		for _, f := range fields {
			if list, ok := v[f].([]any); ok {
				out = append(out, stringsOf(list)...)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: top-level JSON must be an array or object", entity.ErrUnsupportedFormat)
	}
}

func parseYAML(b []byte) ([]string, error) {
	var root any
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUnsupportedFormat, err)
	}

	switch v := root.(type) {
	case nil:
		return nil, nil
	case []any:
		return keysFromList(v), nil
	case map[string]any:
		raw, ok := v["instrument_keys"]
		if !ok {
			return nil, fmt.Errorf("%w: YAML object needs instrument_keys", entity.ErrUnsupportedFormat)
		}
		list, _ := raw.([]any)
		return keysFromList(list), nil
	default:
		return nil, fmt.Errorf("%w: top-level YAML must be a list or mapping", entity.ErrUnsupportedFormat)
	}
}

// keysFromList accepts plain strings and objects carrying instrument_key.
func keysFromList(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if k, ok := v["instrument_key"].(string); ok {
				out = append(out, k)
			}
		}
	}
	return out
}

func stringsOf(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
