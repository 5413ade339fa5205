package browser

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Page adapts a rod page to what the parser needs. Read operations wait up
// to the operation timeout for their element; Count and HasText report the
// current state without waiting.
type Page struct {
	page    *rod.Page
	timeout time.Duration
}

func (p *Page) Count(selector string) (int, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", selector, err)
	}
	return len(els), nil
}

func (p *Page) HasText(selector, text string) (bool, error) {
	has, _, err := p.page.HasR(selector, regexp.QuoteMeta(text))
	if err != nil {
		return false, fmt.Errorf("has text in %s: %w", selector, err)
	}
	return has, nil
}

func (p *Page) Text(selector string) (string, error) {
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("text of %s: %w", selector, err)
	}
	return text, nil
}

func (p *Page) TextAll(selector string) ([]string, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			return nil, fmt.Errorf("text of %s: %w", selector, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// HTML returns the inner HTML of the first match. Inner, not outer: stored
// answers key on the node content the platform renders.
func (p *Page) HTML(selector string) (string, error) {
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	return innerHTML(el)
}

func (p *Page) Attribute(selector, name string) (string, error) {
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	val, err := el.Attribute(name)
	if err != nil {
		return "", fmt.Errorf("attribute %s of %s: %w", name, selector, err)
	}
	if val == nil {
		return "", nil
	}
	return *val, nil
}

func (p *Page) AttributeAll(selector, name string) ([]string, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}
	vals := make([]string, 0, len(els))
	for _, el := range els {
		val, err := el.Attribute(name)
		if err != nil {
			return nil, fmt.Errorf("attribute %s of %s: %w", name, selector, err)
		}
		if val == nil {
			vals = append(vals, "")
			continue
		}
		vals = append(vals, *val)
	}
	return vals, nil
}

func (p *Page) RowsHTML(rowSelector, cellSelector string) ([][]string, error) {
	rows, err := p.page.Elements(rowSelector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", rowSelector, err)
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells, err := row.Elements(cellSelector)
		if err != nil {
			return nil, fmt.Errorf("cells of %s: %w", rowSelector, err)
		}
		htmls := make([]string, 0, len(cells))
		for _, cell := range cells {
			h, err := innerHTML(cell)
			if err != nil {
				return nil, err
			}
			htmls = append(htmls, h)
		}
		out = append(out, htmls)
	}
	return out, nil
}

func (p *Page) Click(selector string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *Page) ClickLast(selector string) error {
	if _, err := p.element(selector); err != nil {
		return err
	}
	els, err := p.page.Elements(selector)
	if err != nil || len(els) == 0 {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := els[len(els)-1].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click last %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Input(selector, text string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text of %s: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input into %s: %w", selector, err)
	}
	return nil
}

// DragTo drags the source element onto the destination with real mouse
// moves. The platform's drag handlers ignore synthetic drop events, so the
// pointer has to travel.
func (p *Page) DragTo(srcSelector, dstSelector string) error {
	src, err := p.element(srcSelector)
	if err != nil {
		return err
	}
	dst, err := p.element(dstSelector)
	if err != nil {
		return err
	}
	from, err := src.Interactable()
	if err != nil {
		return fmt.Errorf("source %s not interactable: %w", srcSelector, err)
	}
	to, err := dst.Interactable()
	if err != nil {
		return fmt.Errorf("target %s not interactable: %w", dstSelector, err)
	}

	mouse := p.page.Mouse
	if err := mouse.MoveTo(*from); err != nil {
		return fmt.Errorf("drag %s: %w", srcSelector, err)
	}
	if err := mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("drag %s: %w", srcSelector, err)
	}
	if err := mouse.MoveLinear(*to, 10); err != nil {
		mouse.Up(proto.InputMouseButtonLeft, 1)
		return fmt.Errorf("drag %s to %s: %w", srcSelector, dstSelector, err)
	}
	if err := mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("drop on %s: %w", dstSelector, err)
	}
	return nil
}

func (p *Page) Reload() error {
	if err := p.page.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

func (p *Page) element(selector string) (*rod.Element, error) {
	el, err := p.page.Timeout(p.timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}
	return el, nil
}

func innerHTML(el *rod.Element) (string, error) {
	res, err := el.Eval(`() => this.innerHTML`)
	if err != nil {
		return "", fmt.Errorf("read inner html: %w", err)
	}
	return res.Value.Str(), nil
}
