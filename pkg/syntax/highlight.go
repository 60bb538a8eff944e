package syntax

import (
	"github.com/alecthomas/chroma/v2"

	"github.com/odvcencio/hoverkit/pkg/ui/style"
	"github.com/odvcencio/hoverkit/pkg/ui/theme"
)

// HighlightID names a syntax class. Its style comes from the active theme.
type HighlightID uint8

const (
	HighlightNone HighlightID = iota
	HighlightKeyword
	HighlightType
	HighlightFunction
	HighlightString
	HighlightNumber
	HighlightComment
	HighlightOperator
	HighlightPunctuation
	HighlightBuiltin
	HighlightVariable
	HighlightAttribute
	HighlightTag
	HighlightConstant
	HighlightError
)

var paletteKeys = [...]string{
	HighlightKeyword:     theme.SyntaxKeyword,
	HighlightType:        theme.SyntaxType,
	HighlightFunction:    theme.SyntaxFunction,
	HighlightString:      theme.SyntaxString,
	HighlightNumber:      theme.SyntaxNumber,
	HighlightComment:     theme.SyntaxComment,
	HighlightOperator:    theme.SyntaxOperator,
	HighlightPunctuation: theme.SyntaxPunctuation,
	HighlightBuiltin:     theme.SyntaxBuiltin,
	HighlightVariable:    theme.SyntaxVariable,
	HighlightAttribute:   theme.SyntaxAttribute,
	HighlightTag:         theme.SyntaxTag,
	HighlightConstant:    theme.SyntaxConstant,
	HighlightError:       theme.SyntaxError,
}

// Name returns the theme palette key, or "" for HighlightNone.
func (id HighlightID) Name() string {
	if int(id) >= len(paletteKeys) {
		return ""
	}
	return paletteKeys[id]
}

// Style resolves the highlight against t. Unknown IDs yield the zero style.
func (id HighlightID) Style(t *theme.Theme) style.Style {
	name := id.Name()
	if name == "" {
		return style.Style{}
	}
	return t.SyntaxStyle(name)
}

func highlightFor(ttype chroma.TokenType) HighlightID {
	if ttype == chroma.Error {
		return HighlightError
	}
	switch {
	case ttype.InCategory(chroma.Comment):
		return HighlightComment
	case ttype.InCategory(chroma.Keyword):
		if ttype == chroma.KeywordType {
			return HighlightType
		}
		if ttype == chroma.KeywordConstant {
			return HighlightConstant
		}
		return HighlightKeyword
	// Strings and numbers share the Literal category, so match subcategories.
	case ttype.InSubCategory(chroma.LiteralString):
		return HighlightString
	case ttype.InSubCategory(chroma.LiteralNumber):
		return HighlightNumber
	case ttype.InCategory(chroma.Operator):
		return HighlightOperator
	case ttype.InCategory(chroma.Punctuation):
		return HighlightPunctuation
	case ttype.InCategory(chroma.Name):
		switch ttype {
		case chroma.NameFunction, chroma.NameFunctionMagic:
			return HighlightFunction
		case chroma.NameClass, chroma.NameNamespace:
			return HighlightType
		case chroma.NameBuiltin, chroma.NameBuiltinPseudo:
			return HighlightBuiltin
		case chroma.NameVariable, chroma.NameVariableClass, chroma.NameVariableGlobal, chroma.NameVariableInstance, chroma.NameVariableMagic:
			return HighlightVariable
		case chroma.NameTag:
			return HighlightTag
		case chroma.NameAttribute:
			return HighlightAttribute
		case chroma.NameConstant:
			return HighlightConstant
		}
	}
	return HighlightNone
}
