package textnorm

// stopwords lists articles and prepositions plus generic chapter-word
// synonyms that carry no search signal. Tuned for the Spanish-language
// catalogues the engine grew up with, with common English fillers included.
var stopwords = map[string]struct{}{
	// Spanish articles and prepositions.
	"el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {},
	"unos": {}, "unas": {}, "del": {}, "de": {}, "al": {}, "en": {},
	"con": {}, "por": {}, "para": {}, "que": {},
	// English fillers.
	"the": {}, "and": {}, "of": {}, "for": {},
	// Chapter-word synonyms; these are parsed structurally, never matched.
	"cap": {}, "caps": {}, "capitulo": {}, "capitulos": {},
	"chapter": {}, "chapters": {}, "episodio": {}, "episodios": {},
	"tomo": {}, "tomos": {}, "vol": {}, "volumen": {},
	"temporada": {}, "season": {},
}
