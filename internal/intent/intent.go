// Package intent classifies one inbound user turn into a closed tag.
// Button-id lookups are authoritative and bypass the text heuristics;
// after that an ordered regex cascade applies, with free text defaulting
// to a catalog query.
package intent

import (
	"regexp"
	"strings"
)

// Tag is the semantic category of an inbound turn.
type Tag string

const (
	TagVacio         Tag = "vacio"
	TagSaludo        Tag = "saludo"
	TagMenu          Tag = "menu"
	TagAyuda         Tag = "ayuda"
	TagGracias       Tag = "gracias"
	TagDespedida     Tag = "despedida"
	TagHumano        Tag = "humano"
	TagEditar        Tag = "editar"
	TagEditarNombre  Tag = "editar_nombre"
	TagEditarEmail   Tag = "editar_email"
	TagLogout        Tag = "logout"
	TagSi            Tag = "si"
	TagNo            Tag = "no"
	TagVolver        Tag = "volver"
	TagPromociones   Tag = "promociones"
	TagBuscar        Tag = "buscar"
	TagRecomendacion Tag = "recomendacion"
	TagDisambig      Tag = "disambig"
	TagFeedback      Tag = "feedback"
)

// Button and list-row identifiers sent back by the platform when the user
// taps an interactive element. These map directly, never through regexes.
var buttonTable = map[string]Tag{
	"menu_buscar":   TagBuscar,
	"menu_promos":   TagPromociones,
	"menu_editar":   TagEditar,
	"menu_humano":   TagHumano,
	"menu_logout":   TagLogout,
	"edit_nombre":   TagEditarNombre,
	"edit_email":    TagEditarEmail,
	"confirmar":     TagSi,
	"cancelar":      TagNo,
	"volver":        TagVolver,
	"fb_positivo":   TagFeedback,
	"fb_mejorar":    TagFeedback,
	"fb_comentario": TagFeedback,
}

type rule struct {
	tag Tag
	re  *regexp.Regexp
}

// Rule order is a contract: narrower rules (editar nombre) must run before
// broader ones (editar), and nothing here may shadow the button table.
var rules = []rule{
	{TagSaludo, regexp.MustCompile(`^(hola|buenas|buen dia|buen día|buenos dias|buenos días|buenas tardes|buenas noches)\b`)},
	{TagMenu, regexp.MustCompile(`^(menu|menú|inicio|opciones)\b`)},
	{TagAyuda, regexp.MustCompile(`\b(ayuda|como funciona|cómo funciona|que podes hacer|qué podés hacer)\b`)},
	{TagGracias, regexp.MustCompile(`\b(gracias|muchas gracias|genial|perfecto)\b`)},
	{TagDespedida, regexp.MustCompile(`^(chau|adios|adiós|hasta luego|nos vemos)\b`)},
	{TagHumano, regexp.MustCompile(`\b(humano|persona|operador|asesor|hablar con alguien|vendedor)\b`)},
	{TagEditarNombre, regexp.MustCompile(`\b(cambiar|editar|modificar|actualizar)\b.*\b(nombre|razon social|razón social)\b`)},
	{TagEditarEmail, regexp.MustCompile(`\b(cambiar|editar|modificar|actualizar)\b.*\b(mail|email|correo)\b`)},
	{TagEditar, regexp.MustCompile(`\b(cambiar|editar|modificar|actualizar)\b.*\b(datos|perfil|cuenta)\b`)},
	{TagLogout, regexp.MustCompile(`\b(cerrar sesion|cerrar sesión|salir de la cuenta|desloguear|logout)\b`)},
	{TagSi, regexp.MustCompile(`^(si|sí|dale|ok|confirmo|confirmar|de acuerdo)[.!]?$`)},
	{TagNo, regexp.MustCompile(`^(no|cancelar|cancela|mejor no)[.!]?$`)},
	{TagVolver, regexp.MustCompile(`^(volver|atras|atrás|anterior)[.!]?$`)},
	{TagPromociones, regexp.MustCompile(`\b(promo|promos|promocion|promoción|promociones|ofertas|descuentos)\b`)},
	{TagBuscar, regexp.MustCompile(`^(buscar|busca)\b`)},
}

var disambigPrefix = "disambig:"

// Classify maps raw inbound text or a selected menu-item id to a tag.
// Empty input yields vacio before any other rule is tried.
func Classify(raw string) Tag {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TagVacio
	}

	if tag, ok := buttonTable[trimmed]; ok {
		return tag
	}
	if strings.HasPrefix(trimmed, disambigPrefix) {
		return TagDisambig
	}

	lower := strings.ToLower(trimmed)
	for _, r := range rules {
		if r.re.MatchString(lower) {
			return r.tag
		}
	}

	// free text is a catalog query
	return TagRecomendacion
}

// DisambigID extracts the product id from a disambig:<id> selection.
func DisambigID(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), disambigPrefix)
}
