package prefs

import (
	"strconv"
	"strings"
)

// Preference names.
const (
	SearchLoginsOnload       = "searchLoginsOnload"
	AutoLogin                = "autoLogin"
	AutoSubmitForm           = "autoSubmitForm"
	JavascriptProtection     = "javascriptProtection"
	SkipDuplicateActionForms = "skipDuplicateActionForms"
	SecureLoginBookmarks     = "secureLoginBookmarks"
	BookmarkHash             = "bookmarkHash"
	HighlightColor           = "highlightColor"
	HighlightOutlineWidth    = "highlightOutlineWidth"
	HighlightOutlineStyle    = "highlightOutlineStyle"
	HighlightOutlineRadius   = "highlightOutlineRadius"
	HighlightStyle           = "highlightStyle"
	ExceptionList            = "exceptionList"
	AutoLoginExceptions      = "autoLoginExceptions"
	ShowDoorhangerLogin      = "showDoorhangerLogin"
)

type descriptor struct {
	get func(*Prefs) string
	set func(*Prefs, string) error
}

var table = map[string]descriptor{
	SearchLoginsOnload:       boolPref(func(p *Prefs) *bool { return &p.SearchLoginsOnload }),
	AutoLogin:                boolPref(func(p *Prefs) *bool { return &p.AutoLogin }),
	AutoSubmitForm:           boolPref(func(p *Prefs) *bool { return &p.AutoSubmitForm }),
	JavascriptProtection:     boolPref(func(p *Prefs) *bool { return &p.JavascriptProtection }),
	SkipDuplicateActionForms: boolPref(func(p *Prefs) *bool { return &p.SkipDuplicateActionForms }),
	SecureLoginBookmarks:     boolPref(func(p *Prefs) *bool { return &p.SecureLoginBookmarks }),
	BookmarkHash:             stringPref(func(p *Prefs) *string { return &p.BookmarkHash }),
	HighlightColor:           stringPref(func(p *Prefs) *string { return &p.HighlightColor }),
	HighlightOutlineWidth:    stringPref(func(p *Prefs) *string { return &p.HighlightOutlineWidth }),
	HighlightOutlineStyle:    stringPref(func(p *Prefs) *string { return &p.HighlightOutlineStyle }),
	HighlightOutlineRadius:   stringPref(func(p *Prefs) *string { return &p.HighlightOutlineRadius }),
	HighlightStyle:           stringPref(func(p *Prefs) *string { return &p.HighlightStyle }),
	ExceptionList:            listPref(func(p *Prefs) *[]string { return &p.ExceptionList }),
	AutoLoginExceptions:      listPref(func(p *Prefs) *[]string { return &p.AutoLoginExceptions }),
	ShowDoorhangerLogin:      boolPref(func(p *Prefs) *bool { return &p.ShowDoorhangerLogin }),
}

func boolPref(field func(*Prefs) *bool) descriptor {
	return descriptor{
		get: func(p *Prefs) string { return strconv.FormatBool(*field(p)) },
		set: func(p *Prefs, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			*field(p) = b
			return nil
		},
	}
}

func stringPref(field func(*Prefs) *string) descriptor {
	return descriptor{
		get: func(p *Prefs) string { return *field(p) },
		set: func(p *Prefs, v string) error {
			*field(p) = strings.TrimSpace(v)
			return nil
		},
	}
}

// lists are written space separated
func listPref(field func(*Prefs) *[]string) descriptor {
	return descriptor{
		get: func(p *Prefs) string { return strings.Join(*field(p), " ") },
		set: func(p *Prefs, v string) error {
			*field(p) = normalizeList(strings.Fields(v))
			return nil
		},
	}
}
