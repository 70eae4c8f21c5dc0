package locator

import (
	"strings"
	"testing"
)

func TestNormalize_ActionableTagAsIs(t *testing.T) {
	doc := mustDoc(t, `<html><body><button><svg class="lucide-x"></svg></button></body></html>`)
	btn := nodeBySelector(t, doc, "button")

	if got := NewSynthesizer().Normalize(btn); got != btn {
		t.Error("an actionable tag should normalize to itself")
	}
}

func TestNormalize_SvgGlyphLiftsToButton(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<button aria-label="Close"><svg><path d="M1 1"></path></svg></button>
	</body></html>`)
	glyph := nodeBySelector(t, doc, "path")

	got := NewSynthesizer().Normalize(glyph)
	if TagName(got) != "button" {
		t.Fatalf("expected the glyph to lift to its button, got <%s>", TagName(got))
	}
}

func TestNormalize_ClickableClassMarker(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<div class="clickable-icon"><svg><use href="#x"></use></svg></div>
	</body></html>`)
	glyph := nodeBySelector(t, doc, "use")

	got := NewSynthesizer().Normalize(glyph)
	if AttrVal(got, "class") != "clickable-icon" {
		t.Fatalf("expected the clickable-icon container, got <%s class=%q>", TagName(got), AttrVal(got, "class"))
	}
}

func TestNormalize_GraphicFallsBackToSvgParent(t *testing.T) {
	// No clickable pattern anywhere; the parent of the outermost graphic
	// is the best available target.
	doc := mustDoc(t, `<html><body>
		<div class="decoration"><svg><g><path d="M0 0"></path></g></svg></div>
	</body></html>`)
	glyph := nodeBySelector(t, doc, "path")

	got := NewSynthesizer().Normalize(glyph)
	if AttrVal(got, "class") != "decoration" {
		t.Fatalf("expected the svg host element, got <%s class=%q>", TagName(got), AttrVal(got, "class"))
	}
}

func TestFromNode_PopulatesFields(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<button aria-label="Toggle sidebar" data-type="nav-toggle" class="nav-action-button">
			<svg class="lucide-sidebar"></svg>
		</button>
	</body></html>`)
	btn := nodeBySelector(t, doc, "button")

	loc := NewSynthesizer().FromNode(btn)
	if loc.AriaLabel != "Toggle sidebar" {
		t.Errorf("AriaLabel = %q", loc.AriaLabel)
	}
	if loc.DataType != "nav-toggle" {
		t.Errorf("DataType = %q", loc.DataType)
	}
	if loc.Description != "Toggle sidebar" {
		t.Errorf("Description = %q", loc.Description)
	}
	if !strings.Contains(loc.Path, "button.nav-action-button") {
		t.Errorf("Path = %q, expected the button segment", loc.Path)
	}
	if !strings.Contains(loc.Path, `:has(.lucide-sidebar)`) {
		t.Errorf("Path = %q, expected the icon constraint", loc.Path)
	}
}

func TestFromNode_SettingRow(t *testing.T) {
	t.Run("with_setting_id", func(t *testing.T) {
		doc := mustDoc(t, `<html><body>
			<div class="setting-item" data-setting-id="vim-mode">
				<div class="setting-item-name">Vim key bindings</div>
				<input type="checkbox">
			</div>
		</body></html>`)
		loc := NewSynthesizer().FromNode(nodeBySelector(t, doc, "input"))
		if loc.SettingID != "vim-mode" {
			t.Errorf("SettingID = %q", loc.SettingID)
		}
		if loc.SettingName != "" {
			t.Errorf("SettingName should stay empty when the id is present, got %q", loc.SettingName)
		}
	})

	t.Run("name_and_control_fallback", func(t *testing.T) {
		doc := mustDoc(t, `<html><body>
			<div class="setting-item">
				<div class="setting-item-name">Theme</div>
				<select><option>Dark</option></select>
			</div>
		</body></html>`)
		loc := NewSynthesizer().FromNode(nodeBySelector(t, doc, "select"))
		if loc.SettingName != "Theme" {
			t.Errorf("SettingName = %q", loc.SettingName)
		}
		if loc.ControlType != ControlDropdown {
			t.Errorf("ControlType = %q", loc.ControlType)
		}
	})
}

func TestFromNode_InputAttrs(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<input type="search" placeholder="Search notes...">
	</body></html>`)
	loc := NewSynthesizer().FromNode(nodeBySelector(t, doc, "input"))
	if loc.Placeholder != "Search notes..." {
		t.Errorf("Placeholder = %q", loc.Placeholder)
	}
	if loc.InputType != "search" {
		t.Errorf("InputType = %q", loc.InputType)
	}
	if loc.Description != "Search notes..." {
		t.Errorf("Description = %q, placeholder should win", loc.Description)
	}
}

func TestFromNode_TextCapturedWhenShort(t *testing.T) {
	doc := mustDoc(t, `<html><body><a href="#">Open vault</a></body></html>`)
	loc := NewSynthesizer().FromNode(nodeBySelector(t, doc, "a"))
	if loc.ExactText != "Open vault" || loc.PartialText != "Open vault" {
		t.Errorf("text fields = %q / %q", loc.ExactText, loc.PartialText)
	}
}

func TestFromNode_LongProseNotRecordedAsText(t *testing.T) {
	long := strings.Repeat("word ", 30)
	doc := mustDoc(t, `<html><body><div class="content">`+long+`</div></body></html>`)
	loc := NewSynthesizer().FromNode(nodeBySelector(t, doc, "div.content"))
	if loc.ExactText != "" || loc.PartialText != "" {
		t.Error("prose longer than the cap must not become a text strategy")
	}
}

func TestFromNode_ModalContext(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<div class="modal community-modal">
			<button aria-label="Install">Install</button>
		</div>
	</body></html>`)
	loc := NewSynthesizer().FromNode(nodeBySelector(t, doc, "button"))
	if loc.Context == nil || !loc.Context.RequireModal {
		t.Fatal("expected a modal context")
	}
	if loc.Context.ModalClass != "community-modal" {
		t.Errorf("ModalClass = %q", loc.Context.ModalClass)
	}
}

func TestFromNode_NoContextOutsideModal(t *testing.T) {
	doc := mustDoc(t, `<html><body><button>Plain</button></body></html>`)
	loc := NewSynthesizer().FromNode(nodeBySelector(t, doc, "button"))
	if loc.Context != nil {
		t.Errorf("expected nil context, got %+v", loc.Context)
	}
}

func TestBuildPath(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		selector string
		want     string
	}{
		{
			"id_anchors_and_stops",
			`<div class="outer"><div id="toolbar"><button class="mod-cta">Go</button></div></div>`,
			"button",
			"#toolbar > button.mod-cta",
		},
		{
			"classes_capped_at_two",
			`<div class="a b c d"><span class="leaf">x</span></div>`,
			"span",
			"div.a.b > span.leaf",
		},
		{
			"generated_classes_skipped",
			`<div class="cm-editor real-panel"><button class="css-9z8y7x deadbeef99">x</button></div>`,
			"button",
			"div.real-panel > button:nth-of-type(1)",
		},
		{
			"placeholder_attr_when_classless",
			`<div class="form-row"><input placeholder="Vault name"></div>`,
			"input",
			`div.form-row > input[placeholder="Vault name"]`,
		},
		{
			"type_attr_when_classless_no_placeholder",
			`<div class="form-row"><input type="checkbox"></div>`,
			"input",
			`div.form-row > input[type="checkbox"]`,
		},
		{
			"class_beats_placeholder",
			`<div class="form-row"><input class="search-input" placeholder="Find"></div>`,
			"input",
			"div.form-row > input.search-input",
		},
		{
			"nth_of_type_fallback",
			`<ul><li>a</li><li>b</li><li class="cm-x">c</li></ul>`,
			"li.cm-x",
			"ul:nth-of-type(1) > li:nth-of-type(3)",
		},
	}
	s := NewSynthesizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, "<html><body>"+tt.src+"</body></html>")
			n := nodeBySelector(t, doc, tt.selector)
			if got := s.buildPath(n, DefaultMeaningfulClass, ""); got != tt.want {
				t.Errorf("buildPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildPath_DepthCap(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<div class="l5"><div class="l4"><div class="l3"><div class="l2"><span class="l1">x</span></div></div></div></div>
	</body></html>`)
	got := NewSynthesizer().buildPath(nodeBySelector(t, doc, "span"), DefaultMeaningfulClass, "")
	want := "div.l4 > div.l3 > div.l2 > span.l1"
	if got != want {
		t.Errorf("buildPath = %q, want %q", got, want)
	}
}

func TestSynthesizedPathResolvesBack(t *testing.T) {
	// The structural path a recording produces must find the same element
	// again in the same document.
	src := `<html><body>
		<div class="workspace"><div class="sidebar">
			<button class="collapse-btn"><svg class="lucide-chevrons-left"></svg></button>
		</div></div>
	</body></html>`
	doc := mustDoc(t, src)
	btn := nodeBySelector(t, doc, "button")

	loc := NewSynthesizer().FromNode(btn)
	res := NewResolver(nil).Resolve(doc, Locator{Path: loc.Path})
	if !res.OK {
		t.Fatalf("synthesized path %q did not resolve: %s", loc.Path, res.Err)
	}
	if res.Element != btn {
		t.Errorf("path %q resolved a different element", loc.Path)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		src  string
		sel  string
		want string
	}{
		{"placeholder_first", `<input placeholder="Name" aria-label="ignored">`, "input", "Name"},
		{"aria_label_second", `<button aria-label="Undo" title="ignored">x</button>`, "button", "Undo"},
		{"title_third", `<span title="Pinned">*</span>`, "span", "Pinned"},
		{"text_fourth", `<a href="#">Back to top</a>`, "a", "Back to top"},
		{"tag_fallback", `<div class="x"></div>`, "div.x", "<div> element"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, "<html><body>"+tt.src+"</body></html>")
			if got := describe(nodeBySelector(t, doc, tt.sel)); got != tt.want {
				t.Errorf("describe = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribe_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("abcde", 20)
	doc := mustDoc(t, "<html><body><p>"+long+"</p></body></html>")
	got := describe(nodeBySelector(t, doc, "p"))
	if len([]rune(got)) != maxDescriptionText {
		t.Errorf("expected %d runes, got %d", maxDescriptionText, len([]rune(got)))
	}
}

func TestIconClass_SkipsGenericWrapper(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<button><svg class="svg-icon lucide-trash"></svg></button>
	</body></html>`)
	got := iconClass(nodeBySelector(t, doc, "button"), DefaultMeaningfulClass)
	if got != "lucide-trash" {
		t.Errorf("iconClass = %q, want lucide-trash", got)
	}
}

func TestLocatorIsZero(t *testing.T) {
	if !(Locator{}).IsZero() {
		t.Error("empty locator should be zero")
	}
	if (Locator{AriaLabel: "x"}).IsZero() {
		t.Error("locator with a strategy field should not be zero")
	}
	if (Locator{Description: "only description"}).IsZero() != true {
		t.Error("description alone carries no strategy")
	}
}
