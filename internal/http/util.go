package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// pathParams 取 prefix 之后的 n 段路径，段数不符或有空段时 ok=false
func pathParams(path, prefix string, n int) ([]string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return nil, false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != n {
		return nil, false
	}
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}
	return parts, true
}
