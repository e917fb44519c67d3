package generator

import "fmt"

// State 一次生成过程所处的阶段
type State int

const (
	StateIdle State = iota
	StateModalOpen
	// 流模式
	StateReceiving
	StateFinalizing
	// 缓冲模式
	StateWaiting
	StateRendered
	StateClosed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateModalOpen:  "modalOpen",
	StateReceiving:  "receiving",
	StateFinalizing: "finalizing",
	StateWaiting:    "waiting",
	StateRendered:   "rendered",
	StateClosed:     "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions 允许的状态转换,任何阶段都可以关闭弹窗
//
// 弹窗被遮罩或Esc关掉时不会经过Closed,结束的生成可以直接重新开始。
var transitions = map[State][]State{
	StateIdle:       {StateModalOpen},
	StateModalOpen:  {StateReceiving, StateWaiting},
	StateReceiving:  {StateFinalizing},
	StateFinalizing: {StateClosed, StateModalOpen},
	StateWaiting:    {StateRendered},
	StateRendered:   {StateClosed, StateModalOpen},
	StateClosed:     {StateModalOpen},
}

// CanTransition 判断状态转换是否合法
func (s State) CanTransition(to State) bool {
	if to == StateClosed {
		return true
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
