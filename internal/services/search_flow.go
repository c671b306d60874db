package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/distrivet/asistente-backend/internal/intent"
	"github.com/distrivet/asistente-backend/internal/models"
	"github.com/distrivet/asistente-backend/internal/nlu"
	"github.com/distrivet/asistente-backend/internal/search"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// SearchFlow turns free-text queries into recommendations: term
// extraction, context accumulation, scoring, disambiguation and the
// final reply. It is the catch-all handler of the chain.
type SearchFlow struct {
	store     storage.Store
	messenger Messenger
	extractor nlu.TermExtractor
	answers   nlu.AnswerGenerator // optional, nil disables guarded answers
	maxRounds int
}

func NewSearchFlow(store storage.Store, messenger Messenger, extractor nlu.TermExtractor, answers nlu.AnswerGenerator, maxRounds int) *SearchFlow {
	return &SearchFlow{
		store:     store,
		messenger: messenger,
		extractor: extractor,
		answers:   answers,
		maxRounds: maxRounds,
	}
}

func (s *SearchFlow) Handle(f *FlowContext) (bool, error) {
	switch f.Tag {
	case intent.TagDisambig:
		return true, s.handleSelection(f)
	case intent.TagBuscar:
		query := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(f.Text, "menu_buscar"), "buscar"))
		if query == "" {
			if err := s.store.SetSessionState(f.Phone, models.StateAwaitingConsulta); err != nil {
				return true, err
			}
			return true, s.messenger.SendText(f.Phone, "¿Qué estás buscando? Contame con tus palabras. 🔎")
		}
		return true, s.handleQuery(f, query)
	case intent.TagRecomendacion:
		return true, s.handleQuery(f, f.Text)
	default:
		return false, nil
	}
}

// handleQuery runs one query turn through the accumulator and the
// scoring engine.
func (s *SearchFlow) handleQuery(f *FlowContext, query string) error {
	terms, err := s.extractor.Extract(query)
	if err != nil {
		return fmt.Errorf("extract terms: %w", err)
	}

	sc := search.Accumulate(f.Session.Search(), query, terms)

	res, err := search.Run(s.store, search.Terms(sc))
	if err != nil {
		return fmt.Errorf("score query: %w", err)
	}

	switch {
	case res.Fallback:
		sc.FailCount++
		if err := s.sendFallback(f.Phone, res.Similares); err != nil {
			return err
		}

	case search.Ambiguous(res) && sc.Hops < s.maxRounds:
		shortlist := search.ShortlistFor(sc, res, 4)
		if len(shortlist) < 2 {
			// everything plausible was already shown; stop asking
			if err := s.sendRecommendation(f, query, res); err != nil {
				return err
			}
			break
		}
		sc.Hops++
		for _, p := range shortlist {
			sc.MarkShown(p.ID)
		}
		if err := s.sendShortlist(f.Phone, shortlist); err != nil {
			return err
		}

	case search.Ambiguous(res):
		// no clarification rounds left: best-effort top plus a way out
		if err := s.sendRecommendation(f, query, res); err != nil {
			return err
		}
		if err := s.messenger.SendText(f.Phone, "Si no era lo que buscabas, escribí \"asesor\" y te contactamos con una persona."); err != nil {
			log.Printf("Failed to send handoff offer to %s: %v", f.Phone, err)
		}

	default:
		if err := s.sendRecommendation(f, query, res); err != nil {
			return err
		}
	}

	sc.LastSimilares = summarize(res.Similares)
	if err := s.store.SetSearchContext(f.Phone, sc); err != nil {
		return err
	}
	return s.store.SetSessionState(f.Phone, models.StateAwaitingConsulta)
}

// handleSelection resolves a disambig:<id> tap into a direct
// recommendation.
func (s *SearchFlow) handleSelection(f *FlowContext) error {
	raw := intent.DisambigID(f.Text)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return s.messenger.SendText(f.Phone, "No reconocí esa opción, probá de nuevo desde la lista.")
	}

	product, err := s.store.GetProductByID(uint(id))
	if err != nil {
		if err == storage.ErrNotFound {
			return s.messenger.SendText(f.Phone, "Ese producto ya no está disponible. ¿Buscamos otra cosa?")
		}
		return err
	}
	// the product may have been hidden or discontinued between the
	// shortlist and the tap
	if !product.Visible || product.Discontinuado {
		return s.messenger.SendText(f.Phone, "Ese producto ya no está disponible. ¿Buscamos otra cosa?")
	}

	if err := s.sendProduct(f.Phone, *product); err != nil {
		return err
	}
	return s.store.SetSessionState(f.Phone, models.StateAwaitingConsulta)
}

func (s *SearchFlow) sendRecommendation(f *FlowContext, query string, res *search.Result) error {
	if err := s.sendProduct(f.Phone, *res.Top); err != nil {
		return err
	}

	if len(res.Similares) > 0 {
		var b strings.Builder
		b.WriteString("También te pueden servir:\n")
		for _, p := range res.Similares {
			fmt.Fprintf(&b, "• %s (%s)\n", p.Nombre, p.Presentacion)
		}
		if err := s.messenger.SendText(f.Phone, b.String()); err != nil {
			log.Printf("Failed to send similares to %s: %v", f.Phone, err)
		}
	}

	if s.answers != nil {
		allowed := append([]models.Product{*res.Top}, res.Similares...)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		answer, err := s.answers.GuardedAnswer(ctx, query, allowed)
		if err != nil {
			log.Printf("Guarded answer failed for %s: %v", f.Phone, err)
		} else if answer != "" {
			if err := s.messenger.SendText(f.Phone, answer); err != nil {
				log.Printf("Failed to send guarded answer to %s: %v", f.Phone, err)
			}
		}
	}
	return nil
}

func (s *SearchFlow) sendProduct(phone string, p models.Product) error {
	var b strings.Builder
	fmt.Fprintf(&b, "💊 *%s*\n%s · %s\n", p.Nombre, p.Marca, p.Presentacion)
	if p.Droga != "" {
		fmt.Fprintf(&b, "Droga: %s\n", p.Droga)
	}
	if p.Precio > 0 {
		fmt.Fprintf(&b, "Precio: $%.2f\n", p.Precio)
	}

	promos, err := s.store.GetActivePromotionsFor(p.ID)
	if err != nil {
		log.Printf("Failed to load promotions for product %d: %v", p.ID, err)
	}
	for _, promo := range promos {
		fmt.Fprintf(&b, "🏷️ %s: %s\n", promo.Titulo, promo.Detalle)
	}

	return s.messenger.SendText(phone, b.String())
}

// sendShortlist presents the disambiguation candidates as a list whose
// row ids come back as disambig:<id> selections.
func (s *SearchFlow) sendShortlist(phone string, products []models.Product) error {
	rows := make([]ListRow, len(products))
	for i, p := range products {
		rows[i] = ListRow{
			ID:          fmt.Sprintf("disambig:%d", p.ID),
			Title:       p.Nombre,
			Description: fmt.Sprintf("%s · %s", p.Marca, p.Presentacion),
		}
	}
	sections := []ListSection{{Title: "Coincidencias", Rows: rows}}
	return s.messenger.SendList(phone, "Encontré varias opciones, ¿cuál te interesa?", "Elegí un producto", "Ver opciones", sections)
}

func (s *SearchFlow) sendFallback(phone string, products []models.Product) error {
	if len(products) == 0 {
		return s.messenger.SendText(phone, "No encontré nada parecido y el catálogo está vacío por acá. Probá con otras palabras.")
	}

	var b strings.Builder
	b.WriteString("No encontré una coincidencia exacta, pero estos son los más pedidos:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "• %s (%s)\n", p.Nombre, p.Presentacion)
	}
	b.WriteString("\n¿Querés que busquemos con otras palabras?")
	return s.messenger.SendText(phone, b.String())
}

func summarize(products []models.Product) []models.ProductSummary {
	out := make([]models.ProductSummary, len(products))
	for i := range products {
		out[i] = products[i].Summary()
	}
	return out
}
