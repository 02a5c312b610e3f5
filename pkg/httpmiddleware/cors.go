package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures CORS.
type CORSConfig struct {
	// AllowOrigins lists permitted origins. Empty or "*" permits any origin.
	AllowOrigins []string
	// AllowMethods defaults to the methods the sales API serves.
	AllowMethods []string
	// AllowHeaders defaults to echoing Access-Control-Request-Headers.
	AllowHeaders []string
	// ExposeHeaders defaults to Location, X-Request-ID and the rate limit
	// headers.
	ExposeHeaders []string
	// AllowCredentials disables the wildcard origin, browsers reject it on
	// credentialed requests.
	AllowCredentials bool
	// MaxAge in seconds for preflight caching. Zero omits the header, negative
	// sends 0.
	MaxAge int
}

var (
	defaultCORSMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	}
	defaultCORSExpose = []string{
		"Location", HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After",
	}
)

// corsPolicy is CORSConfig with header values joined once.
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]string // lower case -> configured
	methods     string
	headers     string
	expose      string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		anyOrigin:   len(cfg.AllowOrigins) == 0,
		origins:     make(map[string]string, len(cfg.AllowOrigins)),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.ToLower(o)] = o
	}
	if p.credentials {
		p.anyOrigin = false
	}

	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	p.methods = strings.Join(methods, ", ")

	expose := cfg.ExposeHeaders
	if expose == nil {
		expose = defaultCORSExpose
	}
	p.expose = strings.Join(expose, ", ")

	switch {
	case cfg.MaxAge > 0:
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		p.maxAge = "0"
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or ""
// when it is not permitted. Configured origins are echoed in their configured
// case.
func (p *corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin {
		return "*"
	}
	return p.origins[strings.ToLower(origin)]
}

func (p *corsPolicy) preflight(w http.ResponseWriter, r *http.Request, origin string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	if origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", p.methods)
		switch requested := r.Header.Get("Access-Control-Request-Headers"); {
		case p.headers != "":
			h.Set("Access-Control-Allow-Headers", p.headers)
		case requested != "":
			h.Set("Access-Control-Allow-Headers", requested)
		}
		if p.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if p.maxAge != "" {
			h.Set("Access-Control-Max-Age", p.maxAge)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p *corsPolicy) actual(w http.ResponseWriter, origin string) {
	h := w.Header()
	if !p.anyOrigin {
		h.Add("Vary", "Origin")
	}
	if origin == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", origin)
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.expose != "" {
		h.Set("Access-Control-Expose-Headers", p.expose)
	}
}

// CORS handles Cross-Origin Resource Sharing. A request is a preflight when it
// is an OPTIONS request carrying Access-Control-Request-Method; preflights are
// answered with 204 and never reach next.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Not a CORS request, but caches must still key on Origin.
				if !p.anyOrigin {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			allowed := p.allowOrigin(origin)
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				p.preflight(w, r, allowed)
				return
			}
			p.actual(w, allowed)
			next.ServeHTTP(w, r)
		})
	}
}
