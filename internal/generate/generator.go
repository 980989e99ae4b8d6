// Package generate builds the compute functions handed to the assistance
// cache: prompt construction per widget type, the model backend call, and a
// prompt-level response cache that dedupes identical prompts.
package generate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/openannotate/labelassist/internal/assist"
)

const defaultPromptCacheSize = 4096

// ItemSource supplies the raw content of an item to annotate.
type ItemSource interface {
	Item(ctx context.Context, index int) (string, error)
}

// renderFunc turns a field name and item content into a prompt. One exists
// per supported (widget, assistant) pair, resolved once when the compute
// function is built.
type renderFunc func(fieldName, content string) string

// Generator resolves suggestion keys into compute functions over a model
// backend. A small LRU keyed by prompt hash sits below the assistance cache:
// items that render to the same prompt share one backend call.
type Generator struct {
	backend Backend
	items   ItemSource
	prompts *lru.Cache[string, string]
}

func NewGenerator(backend Backend, items ItemSource, promptCacheSize int) *Generator {
	if promptCacheSize <= 0 {
		promptCacheSize = defaultPromptCacheSize
	}
	cache, _ := lru.New[string, string](promptCacheSize)
	return &Generator{backend: backend, items: items, prompts: cache}
}

// ComputeFunc builds the compute function for one key. The widget dispatch
// happens here, once, not on every invocation.
func (g *Generator) ComputeFunc(field assist.FieldSpec, key assist.Key) assist.ComputeFunc {
	render := resolveRenderer(field.Widget, key.Assistant)
	if render == nil {
		return func(context.Context) (string, error) {
			return "", fmt.Errorf("no %q assistant for widget %q", key.Assistant, field.Widget)
		}
	}

	return func(ctx context.Context) (string, error) {
		content, err := g.items.Item(ctx, key.Item)
		if err != nil {
			return "", fmt.Errorf("failed to fetch item %d: %w", key.Item, err)
		}

		prompt := render(field.Name, content)
		hash := promptHash(prompt)
		if cached, ok := g.prompts.Get(hash); ok {
			return cached, nil
		}

		output, err := g.backend.Complete(ctx, prompt)
		if err != nil {
			return "", err
		}
		g.prompts.Add(hash, output)
		return output, nil
	}
}

// resolveRenderer is a closed dispatch over the supported widget types and
// assistant kinds. Unsupported combinations return nil.
func resolveRenderer(widget assist.Widget, assistant string) renderFunc {
	switch widget {
	case assist.WidgetChoices:
		switch assistant {
		case assist.AssistantHint:
			return func(field, content string) string {
				return fmt.Sprintf("Explain in one sentence which %q choice fits this item and why:\n\n%s", field, content)
			}
		case assist.AssistantPrelabel:
			return func(field, content string) string {
				return fmt.Sprintf("Reply with exactly one %q choice label for this item, nothing else:\n\n%s", field, content)
			}
		}
	case assist.WidgetLabels:
		switch assistant {
		case assist.AssistantHint:
			return func(field, content string) string {
				return fmt.Sprintf("Summarize what should be tagged with %q labels in this text:\n\n%s", field, content)
			}
		case assist.AssistantKeywords:
			return func(field, content string) string {
				return fmt.Sprintf("List the exact spans in this text that deserve a %q label, one per line:\n\n%s", field, content)
			}
		case assist.AssistantPrelabel:
			return func(field, content string) string {
				return fmt.Sprintf("Return JSON spans [{\"start\",\"end\",\"label\"}] for field %q in this text:\n\n%s", field, content)
			}
		}
	case assist.WidgetRectangleLabels:
		switch assistant {
		case assist.AssistantHint:
			return func(field, content string) string {
				return fmt.Sprintf("Describe the regions relevant to %q in this image:\n\n%s", field, content)
			}
		case assist.AssistantPrelabel:
			return func(field, content string) string {
				return fmt.Sprintf("Return JSON boxes [{\"x\",\"y\",\"w\",\"h\",\"label\"}] for field %q in this image:\n\n%s", field, content)
			}
		}
	case assist.WidgetTextArea:
		if assistant == assist.AssistantHint {
			return func(field, content string) string {
				return fmt.Sprintf("Draft a short %q response for this item:\n\n%s", field, content)
			}
		}
	}
	return nil
}

func promptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
