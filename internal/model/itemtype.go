package model

import (
	"errors"
	"strings"
)

var ErrUnknownItemType = errors.New("unknown item type")

// ItemType 可以插入回答的工单子表单
type ItemType string

const (
	ItemFollowup ItemType = "followup"
	ItemSolution ItemType = "solution"
	ItemTask     ItemType = "task"
)

// ItemTypes 全部子表单类型
var ItemTypes = []ItemType{ItemFollowup, ItemSolution, ItemTask}

// editorSuffix 子表单里富文本编辑器iframe的位置
const editorSuffix = " form[name=asset_form] div.row div.tox-editor-container iframe"

// ParseItemType 解析类型名,兼容旧的 addAnswerFollowup / closeFollowup 形式
func ParseItemType(raw string) (ItemType, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, t := range ItemTypes {
		switch name {
		case string(t), "addanswer" + string(t), "close" + string(t):
			return t, nil
		}
	}
	return "", ErrUnknownItemType
}

// FormSelector 宿主页面中子表单的class
func (t ItemType) FormSelector() string {
	return ".itil" + string(t)
}

// ContainerSelector 按钮插入的位置
func (t ItemType) ContainerSelector() string {
	return t.FormSelector() + " form[name=asset_form] div.row .order-first .row"
}

// EditorSelector 富文本编辑器iframe
func (t ItemType) EditorSelector() string {
	return t.FormSelector() + editorSuffix
}

// Title 首字母大写,用于旧的动作名
func (t ItemType) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}
