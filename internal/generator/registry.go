package generator

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"wikit-semantics/internal/model"
)

// Labels 按钮和提示文案
type Labels struct {
	Add           string
	Close         string
	Error         string
	EditorMissing string
}

// Config 从按钮占位元素的data属性读取
type Config struct {
	TicketID          uint
	ItemType          model.ItemType
	ContainerSelector string
	ButtonLabel       string
	StreamingEnabled  bool
	AjaxURL           string
	AjaxStreamURL     string
	Labels            Labels
}

// ID 同一工单的同一子表单只有一个按钮
func (c Config) ID() string {
	return fmt.Sprintf("%d-%s", c.TicketID, c.ItemType)
}

func ParseConfig(sel *goquery.Selection) (Config, error) {
	id, err := strconv.ParseUint(sel.AttrOr("data-ticket-id", ""), 10, 64)
	if err != nil || id == 0 {
		return Config{}, fmt.Errorf("invalid data-ticket-id %q", sel.AttrOr("data-ticket-id", ""))
	}
	itemType, err := model.ParseItemType(sel.AttrOr("data-item-type", ""))
	if err != nil {
		return Config{}, err
	}
	return Config{
		TicketID:          uint(id),
		ItemType:          itemType,
		ContainerSelector: sel.AttrOr("data-container-selector", itemType.ContainerSelector()),
		ButtonLabel:       sel.AttrOr("data-button-label", ""),
		StreamingEnabled:  sel.AttrOr("data-streaming-enabled", "0") == "1",
		AjaxURL:           sel.AttrOr("data-ajax-url", ""),
		AjaxStreamURL:     sel.AttrOr("data-ajax-stream-url", ""),
		Labels: Labels{
			Add:           sel.AttrOr("data-label-add", "Add to ticket"),
			Close:         sel.AttrOr("data-label-close", "Close"),
			Error:         sel.AttrOr("data-label-error", ""),
			EditorMissing: sel.AttrOr("data-label-editor", ErrEditorNotFound.Error()),
		},
	}, nil
}

// Registry 页面上已经接好的按钮
//
// 宿主系统局部刷新子表单后调用Notify,只有插入了新的占位元素时才重新扫描。
type Registry struct {
	page    *Page
	client  *http.Client
	baseURL string
	widgets map[string]*Generator
	order   []string
}

func NewRegistry(page *Page, client *http.Client, baseURL string) *Registry {
	return &Registry{
		page:    page,
		client:  client,
		baseURL: baseURL,
		widgets: make(map[string]*Generator),
	}
}

// Scan 接好所有尚未初始化的占位元素,返回本次新接的数量
func (r *Registry) Scan() int {
	r.page.mu.Lock()
	containers := r.page.doc.Find(ContainerSelector)
	r.page.mu.Unlock()

	n := 0
	containers.Each(func(_ int, sel *goquery.Selection) {
		if r.Attach(sel) {
			n++
		}
	})
	return n
}

// Attach 幂等,已初始化的占位元素或目标里已有按钮时返回false
func (r *Registry) Attach(sel *goquery.Selection) bool {
	r.page.mu.Lock()
	defer r.page.mu.Unlock()

	if sel.AttrOr("data-initialized", "") == "true" {
		return false
	}
	cfg, err := ParseConfig(sel)
	if err != nil {
		return false
	}
	target := r.page.doc.Find(cfg.ContainerSelector).First()
	if target.Length() == 0 {
		return false
	}
	sel.SetAttr("data-initialized", "true")
	if target.Find(fmt.Sprintf(`.semantics-button[data-widget-id=%q]`, cfg.ID())).Length() > 0 {
		return false
	}

	// 子表单被宿主重新渲染时,新按钮接管同一个ID
	target.PrependHtml(buttonHTML(cfg))
	if _, ok := r.widgets[cfg.ID()]; !ok {
		r.order = append(r.order, cfg.ID())
	}
	r.widgets[cfg.ID()] = NewGenerator(cfg, r.page, r.client, r.baseURL)
	return true
}

// Notify 处理页面局部更新,inserted是新插入的节点
func (r *Registry) Notify(inserted *goquery.Selection) int {
	if inserted.Is(ContainerSelector) || inserted.Find(ContainerSelector).Length() > 0 {
		return r.Scan()
	}
	return 0
}

// Widget 按工单和子表单类型查找
func (r *Registry) Widget(ticketID uint, t model.ItemType) *Generator {
	return r.widgets[Config{TicketID: ticketID, ItemType: t}.ID()]
}

// Widgets 按接入顺序返回
func (r *Registry) Widgets() []*Generator {
	out := make([]*Generator, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.widgets[id])
	}
	return out
}

func buttonHTML(cfg Config) string {
	return fmt.Sprintf(`<div class="form-field row col-12 mb-2 semantics-button" data-widget-id="%s">`+
		`<label class="col-form-label col-2 text-xxl-end"> </label>`+
		`<div class="col-10 field-container"><a class="btn btn-secondary overflow-hidden text-nowrap" title="%s">`+
		`<i class="fas fa-wand-magic-sparkles"></i></a></div></div>`,
		escapeAttr(cfg.ID()), escapeAttr(cfg.ButtonLabel))
}
