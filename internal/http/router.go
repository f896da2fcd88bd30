package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

const terminologyPrefix = "/api/v1/terminology"

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/health", getOnly(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok("healthy"))
	}))
}

// RegisterTerminologyRoutes 注册术语检索路由
func (r *Router) RegisterTerminologyRoutes(h *TerminologyHandler) {
	r.Handle(terminologyPrefix+"/systems", getOnly(h.Systems))
	r.Handle(terminologyPrefix+"/search", getOnly(h.Search))
	r.Handle(terminologyPrefix+"/symptom", getOnly(h.SearchBySymptom))

	// terms/{system}/{id}
	r.Handle(terminologyPrefix+"/terms/", getOnly(func(w http.ResponseWriter, req *http.Request) {
		params, ok := pathParams(req.URL.Path, terminologyPrefix+"/terms/", 2)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetTerm(w, req, params[0], params[1])
	}))

	// icd/{system}/{id}
	r.Handle(terminologyPrefix+"/icd/", getOnly(func(w http.ResponseWriter, req *http.Request) {
		params, ok := pathParams(req.URL.Path, terminologyPrefix+"/icd/", 2)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.SuggestICD(w, req, params[0], params[1])
	}))
}
