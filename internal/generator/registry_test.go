package generator

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikit-semantics/internal/model"
)

func TestRegistryScanIsIdempotent(t *testing.T) {
	page := newTestPage(t, true,
		[]model.ItemType{model.ItemFollowup, model.ItemSolution},
		containerHTML(4, model.ItemFollowup, true),
		containerHTML(4, model.ItemSolution, false),
	)
	reg := NewRegistry(page, nil, "http://example.test")

	assert.Equal(t, 2, reg.Scan())
	assert.Equal(t, 0, reg.Scan())
	assert.Equal(t, 0, reg.Scan())

	assert.Equal(t, 1, page.Find(model.ItemFollowup.ContainerSelector()+" .semantics-button").Length())
	assert.Equal(t, 1, page.Find(model.ItemSolution.ContainerSelector()+" .semantics-button").Length())
	assert.Equal(t, 2, page.Find(`.semantics-button-container[data-initialized="true"]`).Length())
	require.Len(t, reg.Widgets(), 2)

	w := reg.Widget(4, model.ItemFollowup)
	require.NotNil(t, w)
	assert.True(t, w.Config().StreamingEnabled)
	assert.False(t, reg.Widget(4, model.ItemSolution).Config().StreamingEnabled)
	assert.Nil(t, reg.Widget(4, model.ItemTask))
}

func TestRegistryAttachSkipsInitialized(t *testing.T) {
	page := newTestPage(t, true, []model.ItemType{model.ItemTask}, containerHTML(2, model.ItemTask, true))
	reg := NewRegistry(page, nil, "")

	sel := page.doc.Find(ContainerSelector)
	assert.True(t, reg.Attach(sel))
	assert.False(t, reg.Attach(sel))
	assert.Equal(t, 1, page.Find(".semantics-button").Length())
}

func TestRegistryNotify(t *testing.T) {
	page := newTestPage(t, true, []model.ItemType{model.ItemFollowup}, containerHTML(1, model.ItemFollowup, true))
	reg := NewRegistry(page, nil, "")
	require.Equal(t, 1, reg.Scan())

	// 插入的节点里没有占位元素
	unrelated, err := goquery.NewDocumentFromReader(stringsReader(`<div class="note">hi</div>`))
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Notify(unrelated.Find(".note")))

	// 局部刷新插入了solution子表单和它的占位元素
	page.doc.Find("body").AppendHtml(formHTML(model.ItemSolution) + `<div class="partial">` + containerHTML(1, model.ItemSolution, false) + `</div>`)
	assert.Equal(t, 1, reg.Notify(page.doc.Find(".partial")))
	assert.Equal(t, 0, reg.Notify(page.doc.Find(".partial")))
	assert.Len(t, reg.Widgets(), 2)
}

func TestRegistryWaitsForTargetContainer(t *testing.T) {
	page := newTestPage(t, true, nil, containerHTML(3, model.ItemTask, false))
	reg := NewRegistry(page, nil, "")

	assert.Equal(t, 0, reg.Scan())
	assert.Zero(t, page.Find(`[data-initialized="true"]`).Length())

	page.doc.Find("body").AppendHtml(formHTML(model.ItemTask))
	assert.Equal(t, 1, reg.Scan())
}

func TestParseConfigRejectsBadAttributes(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(stringsReader(
		`<div id="a" data-ticket-id="0" data-item-type="task"></div>` +
			`<div id="b" data-ticket-id="3" data-item-type="change"></div>`))
	require.NoError(t, err)

	_, err = ParseConfig(doc.Find("#a"))
	assert.Error(t, err)
	_, err = ParseConfig(doc.Find("#b"))
	assert.ErrorIs(t, err, model.ErrUnknownItemType)
}

func TestRegistryRewiresRerenderedForm(t *testing.T) {
	page := newTestPage(t, true, []model.ItemType{model.ItemFollowup}, containerHTML(8, model.ItemFollowup, true))
	reg := NewRegistry(page, nil, "")
	require.Equal(t, 1, reg.Scan())
	before := reg.Widget(8, model.ItemFollowup)

	// 宿主重新渲染followup子表单和占位元素
	page.doc.Find(model.ItemFollowup.FormSelector()).Remove()
	page.doc.Find(ContainerSelector).Remove()
	page.doc.Find("body").AppendHtml(`<div class="partial">` + formHTML(model.ItemFollowup) + containerHTML(8, model.ItemFollowup, false) + `</div>`)

	assert.Equal(t, 1, reg.Notify(page.doc.Find(".partial")))
	assert.Equal(t, 1, page.Find(model.ItemFollowup.ContainerSelector()+" .semantics-button").Length())
	assert.Len(t, reg.Widgets(), 1)

	after := reg.Widget(8, model.ItemFollowup)
	assert.NotSame(t, before, after)
	assert.False(t, after.Config().StreamingEnabled, "new placeholder config wins")

	assert.Equal(t, 0, reg.Notify(page.doc.Find(".partial")))
}

func TestRegistryDuplicatePlaceholderAddsNoSecondButton(t *testing.T) {
	page := newTestPage(t, true, []model.ItemType{model.ItemSolution},
		containerHTML(5, model.ItemSolution, false),
		containerHTML(5, model.ItemSolution, false),
	)
	reg := NewRegistry(page, nil, "")

	assert.Equal(t, 1, reg.Scan())
	assert.Equal(t, 1, page.Find(".semantics-button").Length())
	assert.Equal(t, 2, page.Find(`.semantics-button-container[data-initialized="true"]`).Length())
}
