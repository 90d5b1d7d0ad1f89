package viacep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"consultant-dashboard/internal/domain/address"
	"consultant-dashboard/pkg/format"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public ViaCEP endpoint.
const DefaultBaseURL = "https://viacep.com.br"

// Lookup errors. The messages are shown to the operator as-is.
var (
	ErrInvalidCEP   = errors.New("CEP inválido")
	ErrNotFound     = errors.New("CEP não encontrado")
	ErrLookupFailed = errors.New("Erro ao buscar CEP")
)

// maxBodyBytes bounds how much of a response body is decoded.
const maxBodyBytes = 64 << 10

// Client resolves Brazilian postal codes to addresses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a lookup client. An empty baseURL falls back to DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type response struct {
	CEP         string   `json:"cep"`
	Logradouro  string   `json:"logradouro"`
	Complemento string   `json:"complemento"`
	Bairro      string   `json:"bairro"`
	Localidade  string   `json:"localidade"`
	UF          string   `json:"uf"`
	Erro        errorTag `json:"erro"`
}

// errorTag accepts both `"erro": true` and `"erro": "true"`.
type errorTag bool

func (e *errorTag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true":
		*e = true
	default:
		*e = false
	}
	return nil
}

// FetchAddress looks up cep, which may carry punctuation.
func (c *Client) FetchAddress(ctx context.Context, cep string) (*address.Address, error) {
	digits := format.UnformatCEP(cep)
	if len(digits) != 8 {
		return nil, ErrInvalidCEP
	}

	url := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Error("Failed to build CEP request", zap.String("cep", digits), zap.Error(err))
		return nil, ErrLookupFailed
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("CEP lookup request failed", zap.String("cep", digits), zap.Error(err))
		return nil, ErrLookupFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("CEP lookup returned non-success status",
			zap.String("cep", digits),
			zap.Int("status", resp.StatusCode),
		)
		return nil, ErrLookupFailed
	}

	var payload response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		c.logger.Warn("Failed to decode CEP response", zap.String("cep", digits), zap.Error(err))
		return nil, ErrLookupFailed
	}

	if payload.Erro {
		c.logger.Debug("CEP not found", zap.String("cep", digits))
		return nil, ErrNotFound
	}

	return &address.Address{
		CEP:          payload.CEP,
		Street:       payload.Logradouro,
		Complement:   payload.Complemento,
		Neighborhood: payload.Bairro,
		City:         payload.Localidade,
		State:        payload.UF,
	}, nil
}
