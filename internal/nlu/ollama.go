package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/distrivet/asistente-backend/internal/models"
)

// OllamaProvider generates guarded answers through a local Ollama server.
type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ AnswerGenerator = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

const guardedSystemPrompt = `Sos el asistente de un catálogo veterinario.
Respondé en una o dos frases, solamente usando los productos listados.
No inventes productos, precios ni indicaciones que no estén en la lista.`

// GuardedAnswer asks the model for a short reply constrained to the
// allowed product set. The product list is injected into the prompt; the
// model never sees anything else of the catalog.
func (o *OllamaProvider) GuardedAnswer(ctx context.Context, query string, allowed []models.Product) (string, error) {
	var list strings.Builder
	for _, p := range allowed {
		fmt.Fprintf(&list, "- %s (%s, %s) droga: %s, acción: %s\n",
			p.Nombre, p.Marca, p.Presentacion, p.Droga, p.Accion)
	}

	payload := ollamaChatRequest{
		Model: o.ModelName,
		Messages: []ollamaMessage{
			{Role: "system", Content: guardedSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Consulta: %s\n\nProductos permitidos:\n%s", query, list.String())},
		},
		Stream: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	return strings.TrimSpace(parsed.Message.Content), nil
}
