package api

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/auth"
	"github.com/Kerhoff/ResidentHub/internal/metrics"
	"github.com/Kerhoff/ResidentHub/internal/service"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// requestID tags every request with an id, reusing a sane inbound one
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestLogger returns an entry carrying the request id and caller
func (s *Server) requestLogger(r *http.Request) *logrus.Entry {
	fields := logrus.Fields{"request_id": requestIDFrom(r.Context())}
	if actor := auth.ActorFrom(r.Context()); actor != nil {
		fields["resident_id"] = actor.ResidentID
	}
	return s.logger.WithFields(fields)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// accessLog logs one line per request
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		entry := s.logger.WithFields(logrus.Fields{
			"request_id":  requestIDFrom(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"bytes":       sw.bytes,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		switch {
		case sw.status >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case sw.status >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	})
}

// sessionActor parses the session token of the request, if any
func (s *Server) sessionActor(r *http.Request) (*service.Actor, error) {
	raw, err := auth.TokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	claims, err := s.tokens.ParseSession(raw)
	if err != nil {
		return nil, err
	}
	return claims.Actor(), nil
}

// optionalAuth attaches the caller when a valid session is present
func (s *Server) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if actor, err := s.sessionActor(r); err == nil {
			r = r.WithContext(auth.WithActor(r.Context(), actor))
		}
		next(w, r)
	}
}

// authenticated rejects requests without a valid session
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return s.requireActor(func(*service.Actor) (bool, string) { return true, "" }, next)
}

// registered also requires a completed registration; staff are exempt
func (s *Server) registered(next http.HandlerFunc) http.HandlerFunc {
	return s.requireActor(func(a *service.Actor) (bool, string) {
		return a.Registered || a.Role.IsStaff(), "complete your registration first"
	}, next)
}

// staff allows SECURITY, FACILITY_MANAGER, ADMIN and SUPERADMIN
func (s *Server) staff(next http.HandlerFunc) http.HandlerFunc {
	return s.requireActor(func(a *service.Actor) (bool, string) {
		return a.Role.IsStaff(), "staff access required"
	}, next)
}

// admin allows ADMIN and SUPERADMIN
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireActor(func(a *service.Actor) (bool, string) {
		return a.Role.IsAdmin(), "administrator access required"
	}, next)
}

func (s *Server) requireActor(allow func(*service.Actor) (bool, string), next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := s.sessionActor(r)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, service.ErrUnauthenticated.Error())
			return
		}
		if ok, msg := allow(actor); !ok {
			s.respondError(w, http.StatusForbidden, msg)
			return
		}
		next(w, r.WithContext(auth.WithActor(r.Context(), actor)))
	}
}

// caller returns the actor attached by the auth middleware
func caller(r *http.Request) service.Actor {
	if a := auth.ActorFrom(r.Context()); a != nil {
		return *a
	}
	return service.Actor{}
}

// limited applies the per-client rate limit of bucket. Limiter errors let
// the request through.
func (s *Server) limited(bucket string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next(w, r)
			return
		}
		ok, err := s.limiter.Allow(r.Context(), bucket+":"+s.clientIP(r))
		if err != nil {
			s.requestLogger(r).WithError(err).Warn("rate limiter failed")
		} else if !ok {
			metrics.RateLimitedTotal.WithLabelValues(bucket).Inc()
			w.Header().Set("Retry-After", "60")
			s.respondError(w, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}
		next(w, r)
	}
}

// clientIP is the address rate limits are keyed on. X-Forwarded-For is only
// read when the peer is a trusted proxy, and then the right-most hop that is
// not itself a trusted proxy wins.
func (s *Server) clientIP(r *http.Request) string {
	peer := remoteHost(r)
	if addr, err := netip.ParseAddr(peer); err != nil || !s.trustedProxy(addr) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			break
		}
		client = addr.Unmap().String()
		if !s.trustedProxy(addr) {
			break
		}
	}
	return client
}

func (s *Server) trustedProxy(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range s.trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
