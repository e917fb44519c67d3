package generator

import (
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"wikit-semantics/internal/model"
)

var (
	ErrEditorNotFound = errors.New("answer editor not found on page")
	ErrModalMissing   = errors.New("answer modal not found on page")
)

const (
	ModalSelector     = "#popupAnswer"
	ModalBodySelector = "#popupAnswer div.modal-body"
	AnswerSelector    = "#divanswer"
	ContainerSelector = ".semantics-button-container"
	TokenSelector     = `meta[property="semantics:csrf_token"]`

	spinnerHTML = `<div class="semantics-spinner" style="display: block; height: 200px; padding: 20px"><i class="fas fa-4x fa-spinner fa-pulse m-5 start-50" style="position: relative; margin: auto !important;"></i></div>`
)

// Page 浏览器里的页面,每个编辑器iframe节点对应一份单独的文档
type Page struct {
	mu        sync.Mutex
	doc       *goquery.Document
	frames    map[*html.Node]*goquery.Document
	modalHTML string
}

// NewPage modalHTML为空时页面必须自带弹窗
func NewPage(doc *goquery.Document, modalHTML string) *Page {
	return &Page{
		doc:       doc,
		frames:    make(map[*html.Node]*goquery.Document),
		modalHTML: modalHTML,
	}
}

func ParsePage(r io.Reader, modalHTML string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return NewPage(doc, modalHTML), nil
}

// HTML 当前页面
func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, _ := goquery.OuterHtml(p.doc.Selection)
	return out
}

// Find 在页面上查询,返回的是副本
func (p *Page) Find(selector string) *goquery.Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find(selector).Clone()
}

func (p *Page) CSRFToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find(TokenSelector).AttrOr("content", "")
}

func (p *Page) SetCSRFToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(TokenSelector).SetAttr("content", token)
}

// ShowModal 页面上没有弹窗时插入一次
func (p *Page) ShowModal() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.doc.Find(ModalSelector).Length() > 0 {
		return nil
	}
	if p.modalHTML == "" {
		return ErrModalMissing
	}
	p.doc.Find("body").AppendHtml(p.modalHTML)
	return nil
}

func (p *Page) ModalBody() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, _ := p.doc.Find(ModalBodySelector).Html()
	return strings.TrimSpace(out)
}

func (p *Page) SetModalBody(fragment string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(ModalBodySelector).SetHtml(fragment)
}

// setAnswer 只更新回答区域,不存在时返回false
func (p *Page) setAnswer(fragment string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	answer := p.doc.Find(ModalBodySelector + " " + AnswerSelector)
	if answer.Length() == 0 {
		return false
	}
	answer.SetHtml(fragment)
	return true
}

// frame 编辑器iframe的文档,每个iframe节点第一次访问时从srcdoc解析
func (p *Page) frame(t model.ItemType) (*goquery.Document, error) {
	iframe := p.doc.Find(t.EditorSelector()).First()
	if iframe.Length() == 0 {
		return nil, ErrEditorNotFound
	}
	node := iframe.Get(0)
	if doc, ok := p.frames[node]; ok {
		return doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(iframe.AttrOr("srcdoc", "")))
	if err != nil {
		return nil, err
	}
	// 重新渲染后旧的iframe已经不在页面上
	for old := range p.frames {
		if p.doc.Find("iframe").FilterNodes(old).Length() == 0 {
			delete(p.frames, old)
		}
	}
	p.frames[node] = doc
	return doc, nil
}

// AddAnswerToTicket 用回答覆盖对应子表单编辑器的内容
func (p *Page) AddAnswerToTicket(content string, t model.ItemType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.frame(t)
	if err != nil {
		return err
	}
	body := doc.Find("#tinymce")
	if body.Length() == 0 {
		body = doc.Find("body")
	}
	if body.Length() == 0 {
		return ErrEditorNotFound
	}
	body.SetHtml(content)
	p.doc.Find(ModalBodySelector).SetHtml(spinnerHTML)
	return nil
}

// Editor 编辑器当前内容
func (p *Page) Editor(t model.ItemType) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.frame(t)
	if err != nil {
		return "", err
	}
	body := doc.Find("#tinymce")
	if body.Length() == 0 {
		body = doc.Find("body")
	}
	out, err := body.Html()
	return strings.TrimSpace(out), err
}
