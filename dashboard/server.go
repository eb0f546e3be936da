package dashboard

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/jeongwoo-hong/jwcoin/internal/analysis"
	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

const streamPollInterval = 3 * time.Second

type tradeReader interface {
	List() ([]domain.Snapshot, error)
	After(id int64) ([]domain.Snapshot, error)
}

type decisionReader interface {
	EventsAfter(index uint64) ([]domain.DecisionEventRecord, error)
}

// Server exposes the HTML UI, SSE streams for trades and decisions, and a
// JSON endpoint computing the P&L ledger on demand.
type Server struct {
	Addr          string
	Store         tradeReader
	DecisionStore decisionReader
	AnalysisCfg   analysis.Config
}

// NewServer creates a new web server instance.
func NewServer(addr string, store tradeReader, decisions decisionReader, cfg analysis.Config) *Server {
	return &Server{Addr: addr, Store: store, DecisionStore: decisions, AnalysisCfg: cfg}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", s.staticHandler())
	mux.HandleFunc("/trades/stream", s.handleTradeStream)
	mux.HandleFunc("/decisions/stream", s.handleDecisionStream)
	mux.HandleFunc("/api/ledger", s.handleLedger)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	// HTTP server on port 80 for ACME challenges and HTTP->HTTPS redirects.
	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http (acme) server shutdown error: %v", err)
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("https server shutdown error: %v", err)
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http (acme) server error: %v", err)
		}
	}()

	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleLedger recomputes the full P&L ledger from the trade history and
// returns it as JSON. The computation is a pure fold over the stored rows,
// so every request reflects the current state of the database.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "trade store not available", http.StatusServiceUnavailable)
		return
	}

	snapshots, err := s.Store.List()
	if err != nil {
		log.Printf("ledger: load trades: %v", err)
		http.Error(w, "failed to load trades", http.StatusInternalServerError)
		return
	}

	result, err := analysis.Run(snapshots, s.AnalysisCfg)
	if err != nil {
		log.Printf("ledger: analysis failed: %v", err)
		http.Error(w, "analysis failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("ledger: encode response: %v", err)
	}
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "trade store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setStreamHeaders(w)

	// send a comment heartbeat every 20s so proxies keep connection
	heartbeat := time.NewTicker(20 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(streamPollInterval)
	defer pollTicker.Stop()

	lastID := int64(parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id")))
	isFirstLoad := lastID == 0
	sendTrades := func() error {
		snapshots, err := s.Store.After(lastID)
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			isFirstLoad = false
			return nil
		}

		// apply exponential thinning on first load for large histories
		toSend := snapshots
		if isFirstLoad && len(snapshots) > 100 {
			toSend = thinSnapshots(snapshots)
		}

		for _, snap := range toSend {
			payload, err := json.Marshal(snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", snap.ID)
			fmt.Fprintf(w, "event: trade\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastID = snap.ID
		}
		isFirstLoad = false
		return nil
	}

	if err := sendTrades(); err != nil {
		http.Error(w, "failed to load trades", http.StatusInternalServerError)
		log.Printf("trade stream initial load: %v", err)
		return
	}

	// after initial load, if nothing was sent, let the client switch from
	// 'loading' to 'no data yet'.
	if lastID == 0 {
		fmt.Fprintf(w, "event: no_data\n")
		fmt.Fprintf(w, "data: {}\n\n")
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendTrades(); err != nil {
				log.Printf("trade stream poll err: %v", err)
			}
		}
	}
}

func (s *Server) handleDecisionStream(w http.ResponseWriter, r *http.Request) {
	if s.DecisionStore == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "decision store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setStreamHeaders(w)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(streamPollInterval)
	defer pollTicker.Stop()

	lastIndex := parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	sendDecisions := func() error {
		records, err := s.DecisionStore.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Event)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: decision\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendDecisions(); err != nil {
		http.Error(w, "failed to load decisions", http.StatusInternalServerError)
		log.Printf("decision stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendDecisions(); err != nil {
				log.Printf("decision stream poll err: %v", err)
			}
		}
	}
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

func (s *Server) staticHandler() http.Handler {
	fileServer := http.StripPrefix("/", http.FileServer(http.Dir("dashboard/static")))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assetPath := r.URL.Path
		if assetPath == "" || assetPath == "/" {
			assetPath = "/index.html"
		}

		if !shouldCompress(assetPath) || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			fileServer.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Vary", "Accept-Encoding")

		gz := gzip.NewWriter(w)
		defer gz.Close()

		gzw := &gzipResponseWriter{ResponseWriter: w, writer: gz}
		fileServer.ServeHTTP(gzw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	writer *gzip.Writer
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.writer.Write(b)
}

func shouldCompress(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return true
	}
	switch ext {
	case ".html", ".css", ".js", ".json", ".svg", ".txt":
		return true
	default:
		return false
	}
}

// parseLastEventID extracts an SSE event ID from either the Last-Event-ID header or a query parameter.
// The header is preferred; the query parameter allows manual reconnects to resume from a known index.
func parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		log.Printf("invalid last event id %q: %v", idStr, err)
		return 0
	}
	return id
}

// thinSnapshots keeps the last 100 rows fully and exponentially thins the rest,
// so first loads over long histories stay light without losing recent detail.
func thinSnapshots(snapshots []domain.Snapshot) []domain.Snapshot {
	if len(snapshots) <= 100 {
		return snapshots
	}

	keepLast := 100
	older := snapshots[:len(snapshots)-keepLast]
	var thinned []domain.Snapshot

	skip := 1 // start by skipping 1 (send every 2nd)
	for i := len(older) - 1; i >= 0; i-- {
		thinned = append([]domain.Snapshot{older[i]}, thinned...)
		i -= skip
		// double skip every 12 records (exponential)
		if (len(older)-1-i)%12 == 0 {
			skip *= 2
		}
	}

	return append(thinned, snapshots[len(snapshots)-keepLast:]...)
}
