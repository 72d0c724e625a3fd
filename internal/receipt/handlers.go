package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/travel-receipt/internal/extraction"
	"github.com/zombor/travel-receipt/internal/scanning"
)

// maxUploadSize allows high-resolution phone photos
const maxUploadSize = int64(50 << 20)

// scanSessionHeader names the client's live-scan session. Only the latest scan of
// a session is answered.
const scanSessionHeader = "X-Scan-Session"

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error response with CORS headers set
func writeError(w http.ResponseWriter, code int, message string) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyAssigned), errors.Is(err, scanning.ErrStaleResult):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports a service error. Server-side failures get a generic message.
func writeServiceError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		writeError(w, code, "Internal server error")
		return
	}
	writeError(w, code, err.Error())
}

// upload is a receipt image read from a multipart form
type upload struct {
	filename    string
	contentType string
	data        []byte
}

// readUpload reads the "file" field. It writes the error response itself and
// returns false on failure.
func readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeError(w, http.StatusBadRequest, errorMsg)
		return nil, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeError(w, http.StatusBadRequest, errorMsg)
		return nil, false
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
		return nil, false
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return nil, false
	}

	return &upload{
		filename:    header.Filename,
		contentType: uploadContentType(header.Header.Get("Content-Type"), header.Filename),
		data:        data,
	}, true
}

// uploadContentType falls back to the file extension when the client sent no type.
// HEIC/HEIF types are preserved so the recognizers can convert them.
func uploadContentType(contentType, filename string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

type parseRequest struct {
	Text      string                `json:"text"`
	Fragments []extraction.Fragment `json:"fragments"`
	Currency  string                `json:"currency"`
	Kind      string                `json:"kind"`
}

// handleParse runs the extraction engine over text or positioned lines
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var opts []extraction.Option
	if req.Currency != "" {
		opts = append(opts, extraction.WithCurrency(req.Currency))
	}
	if req.Kind != "" {
		kind, err := extraction.ParseKind(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts = append(opts, extraction.WithKind(kind))
	}

	var result extraction.Result
	if len(req.Fragments) > 0 {
		result = s.service.ParseFragments(req.Fragments, opts...)
	} else {
		result = s.service.ParseText(req.Text, opts...)
	}

	writeJSON(w, http.StatusOK, result)
}

// scanSession picks the header session, then the authenticated user, then the client address
func (s *Server) scanSession(r *http.Request) string {
	if session := strings.TrimSpace(r.Header.Get(scanSessionHeader)); session != "" {
		return session
	}
	if user, _ := s.credentials(r); user != "" {
		return "user:" + user
	}
	return "addr:" + r.RemoteAddr
}

// handleScan recognizes a receipt for preview without saving it
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	up, ok := readUpload(w, r)
	if !ok {
		return
	}

	scan, err := s.service.Scan(r.Context(), s.scanSession(r), up.data, up.contentType)
	if err != nil {
		if errors.Is(err, scanning.ErrStaleResult) {
			writeError(w, http.StatusConflict, "A newer scan replaced this one")
			return
		}
		slog.Error("Error scanning receipt", "filename", up.filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Error scanning receipt")
		return
	}

	writeJSON(w, http.StatusOK, scan)
}

// handleListExpenses returns a list of all expenses
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListExpenses()
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, expenses)
}

// handleUploadExpense stores and scans a receipt, returning the expense draft
func (s *Server) handleUploadExpense(w http.ResponseWriter, r *http.Request) {
	up, ok := readUpload(w, r)
	if !ok {
		return
	}

	expense, err := s.service.ProcessReceipt(r.Context(), up.filename, up.data, up.contentType, r.FormValue("trip_id"))
	if err != nil {
		slog.Error("Error processing receipt", "filename", up.filename, "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, expense)
}

// handleGetExpense returns a single expense
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.service.GetExpense(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Expense not found")
			return
		}
		slog.Error("Error getting expense", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, expense)
}

// handleGetExpenseFile returns the receipt image of an expense
func (s *Server) handleGetExpenseFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetExpenseFile(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteExpense deletes an expense
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteExpense(r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Expense not found")
			return
		}
		slog.Error("Error deleting expense", "error", err)
		writeError(w, http.StatusInternalServerError, "Error deleting expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleVerifyExpense applies the user's corrections to a draft
func (s *Server) handleVerifyExpense(w http.ResponseWriter, r *http.Request) {
	var update ExpenseUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expense, err := s.service.VerifyExpense(r.PathValue("id"), update)
	if err != nil {
		slog.Error("Error verifying expense", "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, expense)
}

// handleListTrips returns a list of all trips
func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.service.ListTrips()
	if err != nil {
		slog.Error("Error listing trips", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Ensure we always return an array, not nil
	if trips == nil {
		trips = []*Trip{}
	}

	writeJSON(w, http.StatusOK, trips)
}

// handleCreateTrip handles trip creation
func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var input TripInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	trip, err := s.service.CreateTrip(input)
	if err != nil {
		slog.Error("Error creating trip", "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, trip)
}

// handleGetTrip returns a trip with its expenses and spending summary
func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.GetTripWithExpenses(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Trip not found")
			return
		}
		slog.Error("Error getting trip", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
