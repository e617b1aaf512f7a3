// Package telegramtest provides an in-process fake of the Telegram Bot API
// for tests. It serves getMe, getStickerSet and getFile on the method
// endpoint and sticker bytes on the file endpoint.
package telegramtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// DefaultToken is accepted by servers created with NewServer("")
const DefaultToken = "123456:TEST-token"

// Sticker describes one sticker served by the fake API
type Sticker struct {
	FileID       string
	FileUniqueID string
	Emoji        string
	Animated     bool
	Video        bool
	Width        int
	Height       int
	Data         []byte
}

type stickerSet struct {
	name     string
	title    string
	stickers []Sticker
}

type failure struct {
	status      int
	description string
}

// Server is a fake Bot API backed by httptest.Server
type Server struct {
	server *httptest.Server
	token  string

	mu           sync.Mutex
	sets         map[string]*stickerSet
	files        map[string]Sticker // file path -> sticker
	fileFailures map[string]int     // file_id -> status on download
	methodErrors map[string]failure
	calls        map[string]int
	downloads    int
}

// NewServer starts a fake API that accepts token. An empty token selects
// DefaultToken.
func NewServer(token string) *Server {
	if token == "" {
		token = DefaultToken
	}

	s := &Server{
		token:        token,
		sets:         make(map[string]*stickerSet),
		files:        make(map[string]Sticker),
		fileFailures: make(map[string]int),
		methodErrors: make(map[string]failure),
		calls:        make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/file/", s.handleFile)
	mux.HandleFunc("/", s.handleMethod)
	s.server = httptest.NewServer(mux)
	return s
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// Token returns the token the server accepts
func (s *Server) Token() string {
	return s.token
}

// URL returns the base URL of the server
func (s *Server) URL() string {
	return s.server.URL
}

// APIEndpoint returns a method endpoint format with %s placeholders for the
// token and method, like tgbotapi.APIEndpoint
func (s *Server) APIEndpoint() string {
	return s.server.URL + "/bot%s/%s"
}

// FileEndpoint returns a file endpoint format like tgbotapi.FileEndpoint
func (s *Server) FileEndpoint() string {
	return s.server.URL + "/file/bot%s/%s"
}

// AddSet registers a sticker set. Stickers without Data get a small PNG.
func (s *Server) AddSet(name, title string, stickers ...Sticker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := &stickerSet{name: name, title: title}
	for i, st := range stickers {
		if st.FileID == "" {
			st.FileID = fmt.Sprintf("%s-file-%d", name, i)
		}
		if st.FileUniqueID == "" {
			st.FileUniqueID = fmt.Sprintf("uniq%d", i)
		}
		if st.Width == 0 {
			st.Width, st.Height = 8, 8
		}
		if st.Data == nil {
			st.Data = PNG(st.Width, st.Height)
		}
		s.files[filePath(st)] = st
		set.stickers = append(set.stickers, st)
	}
	s.sets[name] = set
}

// FailFile makes downloads of fileID answer with status
func (s *Server) FailFile(fileID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileFailures[fileID] = status
}

// FailMethod makes every call of method answer with a Bot API error
func (s *Server) FailMethod(method string, status int, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methodErrors[method] = failure{status: status, description: description}
}

// Calls returns how many times method was called, including rejected calls
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls returns the number of method calls across all methods
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Downloads returns how many file downloads were attempted
func (s *Server) Downloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads
}

func (s *Server) handleMethod(w http.ResponseWriter, r *http.Request) {
	// /bot<token>/<method>
	rest, ok := strings.CutPrefix(r.URL.Path, "/bot")
	if !ok {
		http.NotFound(w, r)
		return
	}
	token, method, ok := strings.Cut(rest, "/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.calls[method]++
	fail, failing := s.methodErrors[method]
	s.mu.Unlock()

	if token != s.token {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if failing {
		writeError(w, fail.status, fail.description)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}

	switch method {
	case "getMe":
		writeResult(w, map[string]interface{}{
			"id":         1,
			"is_bot":     true,
			"first_name": "Sticker Test",
			"username":   "sticker_test_bot",
		})
	case "getStickerSet":
		s.handleGetStickerSet(w, r.FormValue("name"))
	case "getFile":
		s.handleGetFile(w, r.FormValue("file_id"))
	default:
		writeError(w, http.StatusNotFound, "Not Found")
	}
}

func (s *Server) handleGetStickerSet(w http.ResponseWriter, name string) {
	s.mu.Lock()
	set, ok := s.sets[name]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusBadRequest, "Bad Request: STICKERSET_INVALID")
		return
	}

	stickers := make([]map[string]interface{}, 0, len(set.stickers))
	for _, st := range set.stickers {
		stickers = append(stickers, map[string]interface{}{
			"file_id":        st.FileID,
			"file_unique_id": st.FileUniqueID,
			"type":           "regular",
			"width":          st.Width,
			"height":         st.Height,
			"is_animated":    st.Animated,
			"is_video":       st.Video,
			"emoji":          st.Emoji,
			"set_name":       set.name,
			"file_size":      len(st.Data),
		})
	}

	writeResult(w, map[string]interface{}{
		"name":         set.name,
		"title":        set.title,
		"sticker_type": "regular",
		"stickers":     stickers,
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, fileID string) {
	s.mu.Lock()
	var (
		found Sticker
		ok    bool
	)
	for _, st := range s.files {
		if st.FileID == fileID {
			found, ok = st, true
			break
		}
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusBadRequest, "Bad Request: invalid file_id")
		return
	}

	writeResult(w, map[string]interface{}{
		"file_id":        found.FileID,
		"file_unique_id": found.FileUniqueID,
		"file_size":      len(found.Data),
		"file_path":      filePath(found),
	})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	// /file/bot<token>/<file path>
	rest, ok := strings.CutPrefix(r.URL.Path, "/file/bot")
	if !ok {
		http.NotFound(w, r)
		return
	}
	token, path, _ := strings.Cut(rest, "/")

	s.mu.Lock()
	s.downloads++
	st, found := s.files[path]
	status := s.fileFailures[st.FileID]
	s.mu.Unlock()

	switch {
	case token != s.token:
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case !found:
		http.NotFound(w, r)
	case status != 0:
		http.Error(w, http.StatusText(status), status)
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", fmt.Sprint(len(st.Data)))
		w.Write(st.Data)
	}
}

func filePath(st Sticker) string {
	ext := ".webp"
	switch {
	case st.Animated:
		ext = ".tgs"
	case st.Video:
		ext = ".webm"
	}
	return "stickers/" + st.FileID + ext
}

func writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":     true,
		"result": result,
	})
}

func writeError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":          false,
		"error_code":  status,
		"description": description,
	})
}

// PNG returns an encoded w x h image with a transparent left half and an
// opaque right half. Decoders sniff content, so it can stand in for a
// .webp sticker.
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= w/2 {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: uint8(10 * y), B: 40, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// StaticSticker is a convenience constructor for a convertible sticker
func StaticSticker(fileID, uniqueID, emoji string) Sticker {
	return Sticker{FileID: fileID, FileUniqueID: uniqueID, Emoji: emoji}
}

// AnimatedSticker is a convenience constructor for a Lottie sticker
func AnimatedSticker(fileID, uniqueID, emoji string) Sticker {
	return Sticker{FileID: fileID, FileUniqueID: uniqueID, Emoji: emoji, Animated: true, Data: []byte(`{"tgs":1}`)}
}
