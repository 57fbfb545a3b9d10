package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/rkotari/smartdrive"
)

// Service is the orchestration surface the handlers call into.
type Service interface {
	SignUp(ctx context.Context, email, password string) (smartdrive.Session, error)
	LogIn(ctx context.Context, email, password string) (smartdrive.Session, error)
	Upload(ctx context.Context, owner, fileName string, content io.Reader) (smartdrive.FileView, error)
	List(ctx context.Context, owner string) ([]smartdrive.FileView, error)
	Delete(ctx context.Context, subject, fileID string) error
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	Verifier      TokenVerifier
	CORS          CORSConfig
	MaxUploadSize int64 // bytes; 0 means no limit
	// Downloads optionally serves blobs for backends without an external URL
	// scheme (the filesystem store). Mounted under /download when set.
	Downloads http.Handler
}

// Handler provides the HTTP handlers for the smartdrive API.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with all routes configured. Signup, login,
// and the status route are public; everything else sits behind RequireAuth.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/", h.handleHome)
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.config.Verifier))
		r.Post("/upload", h.handleUpload)
		r.Get("/files", h.handleList)
		r.Delete("/delete/{fileID}", h.handleDelete)
	})

	if h.config.Downloads != nil {
		r.Get("/download/*", http.StripPrefix("/download/", h.config.Downloads).ServeHTTP)
	}

	return r
}

type messageResponse struct {
	Message string `json:"message"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	Email   string `json:"email"`
}

type uploadResponse struct {
	Message  string `json:"message"`
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	URL      string `json:"url"`
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, messageResponse{Message: "SmartDrive backend is running"})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	session, err := h.service.SignUp(r.Context(), creds.Email, creds.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, sessionResponse{
		Message: "Signup successful!",
		Token:   session.Token,
		Email:   session.Email,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	session, err := h.service.LogIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, sessionResponse{
		Message: "Login successful!",
		Token:   session.Token,
		Email:   session.Email,
	})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var creds credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "Invalid JSON body")
		return credentialsRequest{}, false
	}
	if creds.Email == "" || creds.Password == "" {
		WriteError(w, http.StatusBadRequest, "bad_request", "Email and password are required")
		return credentialsRequest{}, false
	}
	return creds, true
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	subject := SubjectFromContext(r.Context())

	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			WriteError(w, http.StatusBadRequest, "bad_request", "No file provided")
			return
		}
		WriteError(w, http.StatusBadRequest, "bad_request", "Invalid multipart body")
		return
	}
	defer func() { _ = file.Close() }()

	view, err := h.service.Upload(r.Context(), subject, header.Filename, file)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, uploadResponse{
		Message:  "File uploaded successfully!",
		FileID:   view.FileID,
		FileName: view.FileName,
		URL:      view.URL,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	subject := SubjectFromContext(r.Context())

	views, err := h.service.List(r.Context(), subject)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	subject := SubjectFromContext(r.Context())
	fileID := chi.URLParam(r, "fileID")

	if err := h.service.Delete(r.Context(), subject, fileID); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, messageResponse{Message: "File deleted successfully!"})
}
