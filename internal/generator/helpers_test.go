package generator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"wikit-semantics/internal/model"
)

const testModal = `<div class="modal fade" id="popupAnswer"><div class="modal-dialog"><div class="modal-content">` +
	`<div class="modal-body"><div class="semantics-spinner"></div></div></div></div></div>`

func formHTML(t model.ItemType) string {
	return fmt.Sprintf(`<div class="itil%s"><form name="asset_form"><div class="row">`+
		`<div class="order-first"><div class="row"></div></div>`+
		`<div class="tox-editor-container"><iframe srcdoc="&lt;html&gt;&lt;body id=&#39;tinymce&#39;&gt;&lt;p&gt;&lt;/p&gt;&lt;/body&gt;&lt;/html&gt;"></iframe></div>`+
		`</div></form></div>`, t)
}

func containerHTML(ticketID uint, t model.ItemType, streaming bool) string {
	flag := "0"
	if streaming {
		flag = "1"
	}
	return fmt.Sprintf(`<div class="semantics-button-container" data-ticket-id="%d" data-item-type="%s"`+
		` data-container-selector="%s" data-button-label="Suggest" data-streaming-enabled="%s"`+
		` data-ajax-url="/ajax/generateanswer" data-ajax-stream-url="/ajax/generateanswer/stream"`+
		` data-label-add="Add" data-label-close="Close" data-label-error="Something went wrong"`+
		` data-label-editor="Editor missing"></div>`, ticketID, t, t.ContainerSelector(), flag)
}

// newTestPage 带表单、按钮占位元素和弹窗的工单页面
func newTestPage(t *testing.T, withModal bool, forms []model.ItemType, containers ...string) *Page {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<html><head><meta property="semantics:csrf_token" content="token-0"></head><body>`)
	for _, it := range forms {
		b.WriteString(formHTML(it))
	}
	for _, c := range containers {
		b.WriteString(c)
	}
	if withModal {
		b.WriteString(testModal)
	}
	b.WriteString(`</body></html>`)

	modal := ""
	if !withModal {
		modal = testModal
	}
	page, err := ParsePage(strings.NewReader(b.String()), modal)
	require.NoError(t, err)
	return page
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
