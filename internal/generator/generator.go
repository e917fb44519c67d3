package generator

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultGrace 流模式下第一个chunk到达前保留加载动画的时间
const DefaultGrace = time.Second

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrGenerationFailed  = errors.New("answer generation failed")
	ErrNoAnswer          = errors.New("no answer to add")
)

// streamData SSE事件的data字段
type streamData struct {
	Chunk *string `json:"chunk"`
	Token string  `json:"token"`
	Error string  `json:"error"`
}

// Generator 一个按钮对应的生成器
type Generator struct {
	cfg     Config
	page    *Page
	client  *http.Client
	baseURL string

	// Grace 可在生成之前修改
	Grace time.Duration

	mu      sync.Mutex
	state   State
	text    strings.Builder
	answer  string
	spinner bool
}

func NewGenerator(cfg Config, page *Page, client *http.Client, baseURL string) *Generator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Generator{
		cfg:     cfg,
		page:    page,
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		Grace:   DefaultGrace,
	}
}

func (g *Generator) Config() Config {
	return g.cfg
}

func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Text 流模式下累积的原始文本
func (g *Generator) Text() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text.String()
}

// Answer 将要写入编辑器的HTML
func (g *Generator) Answer() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.answer
}

func (g *Generator) transition(to State) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.transitionLocked(to)
}

func (g *Generator) transitionLocked(to State) error {
	if !g.state.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.state, to)
	}
	g.state = to
	return nil
}

// Generate 打开弹窗并按配置选择流模式或缓冲模式
func (g *Generator) Generate(ctx context.Context) error {
	if err := g.page.ShowModal(); err != nil {
		return err
	}
	g.mu.Lock()
	g.text.Reset()
	g.answer = ""
	err := g.transitionLocked(StateModalOpen)
	g.mu.Unlock()
	if err != nil {
		return err
	}

	if g.cfg.StreamingEnabled {
		return g.generateStreaming(ctx)
	}
	return g.generateBuffered(ctx)
}

// Close 关闭弹窗,弹窗内容恢复为加载动画
func (g *Generator) Close() {
	g.mu.Lock()
	g.state = StateClosed
	g.spinner = false
	g.mu.Unlock()
	g.page.SetModalBody(spinnerHTML)
}

// Add 把回答写入编辑器,找不到编辑器时在弹窗里提示
func (g *Generator) Add() error {
	answer := g.Answer()
	if answer == "" {
		return ErrNoAnswer
	}
	if err := g.page.AddAnswerToTicket(answer, g.cfg.ItemType); err != nil {
		g.page.SetModalBody(errorHTML(g.cfg.Labels.EditorMissing) + closeButtonHTML(g.cfg.Labels.Close))
		return err
	}
	g.mu.Lock()
	g.state = StateClosed
	g.mu.Unlock()
	return nil
}

func (g *Generator) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return g.baseURL + path
}

func (g *Generator) fail() {
	g.page.SetModalBody(errorHTML(g.cfg.Labels.Error) + closeButtonHTML(g.cfg.Labels.Close))
}

// ===== 流模式 =====

func (g *Generator) generateStreaming(ctx context.Context) error {
	g.mu.Lock()
	g.spinner = true
	err := g.transitionLocked(StateReceiving)
	g.mu.Unlock()
	if err != nil {
		return err
	}
	g.page.SetModalBody(spinnerHTML)

	timer := time.AfterFunc(g.Grace, g.render)
	defer timer.Stop()

	form := url.Values{
		"ticketId": {strconv.FormatUint(uint64(g.cfg.TicketID), 10)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.resolve(g.cfg.AjaxStreamURL), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/event-stream")
	// 头里的令牌不会被消耗,中途断开也不影响下一次请求
	req.Header.Set("X-CSRF-Token", g.page.CSRFToken())

	resp, err := g.client.Do(req)
	if err != nil {
		timer.Stop()
		g.finishFailed()
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		timer.Stop()
		g.finishFailed()
		return fmt.Errorf("%w: HTTP %d", ErrGenerationFailed, resp.StatusCode)
	}

	failed := false
	reader := bufio.NewReader(resp.Body)
	for {
		line, readErr := reader.ReadString('\n')
		if g.handleLine(strings.TrimSpace(line), timer) {
			failed = true
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			timer.Stop()
			g.finishFailed()
			return readErr
		}
	}
	timer.Stop()

	if failed {
		g.finishFailed()
		return ErrGenerationFailed
	}
	return g.finish()
}

// handleLine 处理一行事件流,返回是否收到error事件
func (g *Generator) handleLine(line string, timer *time.Timer) bool {
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return false
	}
	var data streamData
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &data); err != nil {
		log.Printf("[Generator] unparsable line %q: %v", line, err)
		return false
	}

	switch {
	case data.Chunk != nil:
		g.mu.Lock()
		g.text.WriteString(*data.Chunk)
		g.mu.Unlock()
		timer.Stop()
		g.render()
	case data.Token != "":
		g.page.SetCSRFToken(data.Token)
	case data.Error != "":
		return true
	}
	return false
}

// render 第一次调用时把加载动画换成回答区域
func (g *Generator) render() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateReceiving {
		return
	}
	content := TextToHTML(g.text.String())
	if g.spinner || !g.page.setAnswer(content) {
		g.page.SetModalBody(answerHTML(content))
	}
	g.spinner = false
}

func (g *Generator) finish() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.transitionLocked(StateFinalizing); err != nil {
		return err
	}
	g.spinner = false
	g.answer = TextToHTML(g.text.String())

	payload, err := encodePayload(g.answer)
	if err != nil {
		return err
	}
	g.page.SetModalBody(answerHTML(g.answer) + addButtonHTML(g.cfg, payload) + closeButtonHTML(g.cfg.Labels.Close))
	return nil
}

func (g *Generator) finishFailed() {
	g.mu.Lock()
	g.spinner = false
	g.transitionLocked(StateFinalizing)
	g.mu.Unlock()
	g.fail()
}

// ===== 缓冲模式 =====

func (g *Generator) generateBuffered(ctx context.Context) error {
	if err := g.transition(StateWaiting); err != nil {
		return err
	}
	g.page.SetModalBody(spinnerHTML)

	title := g.cfg.ItemType.Title()
	form := url.Values{
		"ticketId": {strconv.FormatUint(uint64(g.cfg.TicketID), 10)},
		"answer":   {"addAnswer" + title},
		"close":    {"close" + title},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.resolve(g.cfg.AjaxURL), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", g.page.CSRFToken())

	resp, err := g.client.Do(req)
	if err != nil {
		g.transition(StateRendered)
		g.fail()
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err == nil && resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("%w: HTTP %d", ErrGenerationFailed, resp.StatusCode)
	}
	if err != nil {
		g.transition(StateRendered)
		g.fail()
		return err
	}

	g.page.SetModalBody(string(body))
	add := g.page.Find(ModalBodySelector + " #btnAddAnswer")

	g.mu.Lock()
	defer g.mu.Unlock()
	if encoded, ok := add.Attr("data-answer-content"); ok {
		content, err := decodePayload(encoded)
		if err != nil {
			log.Printf("[Generator] bad answer payload: %v", err)
		}
		g.answer = content
	}
	return g.transitionLocked(StateRendered)
}

func encodePayload(content string) (string, error) {
	raw, err := json.Marshal(struct {
		Content string `json:"content"`
	}{content})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodePayload(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", err
	}
	return payload.Content, nil
}

// ===== 弹窗片段 =====

func escapeAttr(s string) string {
	return html.EscapeString(s)
}

func answerHTML(content string) string {
	return `<div id="divanswer" style="padding: 20px;">` + content + `</div>`
}

func errorHTML(message string) string {
	return `<div class="semantics-error">` + html.EscapeString(message) + `</div>`
}

func addButtonHTML(cfg Config, payload string) string {
	return fmt.Sprintf(`<button type="button" id="btnAddAnswer" class="btn btn-primary" data-bs-dismiss="modal" data-item-type="%s" data-answer-content="%s">%s</button>`,
		escapeAttr(string(cfg.ItemType)), escapeAttr(payload), html.EscapeString(cfg.Labels.Add))
}

func closeButtonHTML(label string) string {
	return `<button type="button" id="btnClose" class="btn btn-secondary" data-bs-dismiss="modal">` + html.EscapeString(label) + `</button>`
}
