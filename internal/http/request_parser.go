package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// maxPhotoBytes bounds the in-memory part of a multipart upload; maxBodyBytes
// bounds the whole request.
const (
	maxPhotoBytes = 10 << 20
	maxBodyBytes  = maxPhotoBytes + 1<<20
)

var (
	ErrMissingAmount = errors.New("amount is required")
	ErrNoUploadDir   = errors.New("photo uploads are disabled")
)

// RequestBodyParser handles JSON and form-encoded bodies behind one accessor.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ExpenseRequest is the decoded body of an expense creation.
type ExpenseRequest struct {
	Amount      decimal.Decimal
	Description string
	PhotoRef    string
}

// ParseExpenseRequest accepts JSON, form-encoded or multipart bodies. Only a
// multipart "photo" file attaches a photo; it is stored under uploadDir and
// referenced by that path. Client-supplied paths are never read.
func ParseExpenseRequest(r *http.Request, uploadDir string) (ExpenseRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return parseMultipartExpense(r, uploadDir)
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return ExpenseRequest{}, err
	}
	return buildExpenseRequest(p.Get("amount"), p.Get("description"), "")
}

func parseMultipartExpense(r *http.Request, uploadDir string) (ExpenseRequest, error) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		return ExpenseRequest{}, fmt.Errorf("parse multipart form: %w", err)
	}
	req, err := buildExpenseRequest(sanitizeInput(r.FormValue("amount")), sanitizeInput(r.FormValue("description")), "")
	if err != nil {
		return req, err
	}

	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return req, fmt.Errorf("read photo: %w", err)
	}
	defer file.Close()

	if uploadDir == "" {
		return req, ErrNoUploadDir
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return req, fmt.Errorf("create upload dir: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = core.PhotoExtension
	}
	path := filepath.Join(uploadDir, uuid.NewString()+ext)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return req, fmt.Errorf("store photo: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		return req, fmt.Errorf("store photo: %w", err)
	}
	if err := out.Close(); err != nil {
		return req, fmt.Errorf("store photo: %w", err)
	}
	req.PhotoRef = path
	return req, nil
}

func buildExpenseRequest(amount, description, photoRef string) (ExpenseRequest, error) {
	if amount == "" {
		return ExpenseRequest{}, ErrMissingAmount
	}
	d, err := core.ParseAmount(amount)
	if err != nil {
		return ExpenseRequest{}, err
	}
	return ExpenseRequest{Amount: d, Description: description, PhotoRef: photoRef}, nil
}

// ParseShareRequest returns the friend email of a share request.
func ParseShareRequest(r *http.Request) (string, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return "", err
	}
	return p.Get("email"), nil
}
