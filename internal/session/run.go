package session

import (
	"context"

	"github.com/google/uuid"

	"inkflow-backend/internal/model"
)

// Snapshot 每次泵动作之后的消息快照。
// Done 为 true 的快照在一次运行里最多出现一次。
type Snapshot struct {
	Message *model.AssistantMessage
	Done    bool
}

// Run 启动会话并在后台驱动泵循环，快照经通道送出。
// 通道在流结束、暂停或出错后关闭；错误通过 errChan 给出。
// 外部 Pause 被视为本次运行的正常结束（快照带 Done），不会再补发第二次结束通知。
func (c *Coordinator) Run(ctx context.Context, p StartParams) (<-chan Snapshot, <-chan error) {
	snapshots := make(chan Snapshot, 100)
	errChan := make(chan error, 1)

	go func() {
		defer close(snapshots)
		defer close(errChan)

		s, err := c.Start(ctx, p)
		if err != nil {
			errChan <- err
			return
		}
		// 本次运行绑定启动时的槽位代次，同 ID 新请求接管后旧运行不再碰会话状态
		gen := s.gen()

		pauseIfCurrent := func() {
			if s.gen() == gen {
				c.Pause(p.SessionID)
			}
		}

		// send 把快照送出；调用方不再收快照（ctx 取消）时放弃发送并暂停会话，
		// 避免本协程在发送上永久阻塞
		send := func(snap Snapshot) bool {
			select {
			case snapshots <- snap:
				return true
			case <-ctx.Done():
				pauseIfCurrent()
				return false
			}
		}

		list := []*model.AssistantMessage{model.NewAssistantMessage(uuid.New().String())}

		for {
			select {
			case <-ctx.Done():
				pauseIfCurrent()
				return
			default:
			}

			if c.IsPaused(p.SessionID) {
				send(Snapshot{Message: lastOf(list), Done: true})
				return
			}

			res, err := c.pumpSession(s, gen, &list)
			if err != nil && res != PumpCompleted {
				errChan <- err
				return
			}

			switch res {
			case PumpCompleted:
				// 结束通知恰好一次；读错误时已累积的内容仍随快照带出
				send(Snapshot{Message: lastOf(list), Done: true})
				if err != nil {
					errChan <- err
				}
				return
			case PumpCancelled:
				// 外部 Pause 已把会话置位，调用方 ctx 的取消在这里收敛到 paused；
				// 槽位被接管时不动会话状态，新流自己掌管生命周期
				if ctx.Err() != nil {
					pauseIfCurrent()
				}
				send(Snapshot{Message: lastOf(list), Done: true})
				return
			default:
				if !send(Snapshot{Message: lastOf(list), Done: false}) {
					return
				}
			}
		}
	}()

	return snapshots, errChan
}

func lastOf(list []*model.AssistantMessage) *model.AssistantMessage {
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}
