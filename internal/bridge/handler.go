package bridge

import (
	"context"
	"fmt"

	"github.com/megamanics/interactive/internal/protocol"
	"github.com/megamanics/interactive/internal/transport"
	"github.com/sirupsen/logrus"
)

// Handler 将一种本地命令翻译为协议请求，并把关联回复折叠回本地事件
type Handler func(ctx context.Context, cmd Command, ectx *ExecutionContext) error

// ExecutionContext 单次 dispatch 提供给 handler 的执行环境
type ExecutionContext struct {
	messenger transport.Messenger
	matcher   *Matcher
	publish   func(Event) error
}

// Publish 按产生顺序发布一个本地事件
func (ec *ExecutionContext) Publish(event Event) error {
	return ec.publish(event)
}

// Exchange 发出请求并等待其后续 count 条匹配回复。
// 观察在发送之前注册，保证不会漏掉先到的回复。
func (ec *ExecutionContext) Exchange(ctx context.Context, req *protocol.Message, kindFilter protocol.Kind, count int) ([]*protocol.Message, error) {
	if count < 1 {
		return nil, fmt.Errorf("exchange %s: count must be >= 1", req.Kind)
	}

	ch, release := ec.matcher.Watch(req.MsgID, kindFilter)
	defer release()

	if err := ec.messenger.Send(ctx, req); err != nil {
		return nil, err
	}

	replies := make([]*protocol.Message, 0, count)
	for len(replies) < count {
		select {
		case <-ctx.Done():
			return nil, cancelled(ctx.Err())
		case msg := <-ch:
			replies = append(replies, msg)
		}
	}
	return replies, nil
}

// DefaultHandlers 构造时解析一次的命令类型 → handler 注册表
func DefaultHandlers() map[CommandKind]Handler {
	return map[CommandKind]Handler{
		CommandRequestKernelInfo: handleRequestKernelInfo,
		CommandSubmitCode:        handleSubmitCode,
		CommandRequestValue:      handleRequestValue,
		CommandRequestValueInfos: handleRequestValueInfos,
	}
}

func handleRequestKernelInfo(ctx context.Context, cmd Command, ectx *ExecutionContext) error {
	req, err := protocol.NewRequest(protocol.KindKernelInfoRequest, nil)
	if err != nil {
		return err
	}

	replies, err := ectx.Exchange(ctx, req, protocol.KindKernelInfoReply, 1)
	if err != nil {
		return err
	}

	content := &protocol.KernelInfoReply{}
	if err := replies[0].DecodeContent(content); err != nil {
		return err
	}
	// language_info 缺省是合法的，按空值传播
	return ectx.Publish(&KernelInfoProduced{
		Cmd:  cmd,
		Info: protocol.NewKernelInfo(content),
	})
}

func handleSubmitCode(ctx context.Context, cmd Command, ectx *ExecutionContext) error {
	submit := cmd.(*SubmitCode)
	req, err := protocol.NewRequest(protocol.KindExecuteRequest, &protocol.ExecuteRequest{
		Code:         submit.Code,
		StoreHistory: true,
		StopOnError:  true,
	})
	if err != nil {
		return err
	}

	// 执行交换产生一个回复序列：过程消息 + 终结的 execute_reply
	ch, release := ectx.matcher.Watch(req.MsgID, "")
	defer release()

	if err := ectx.messenger.Send(ctx, req); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return cancelled(ctx.Err())
		case msg := <-ch:
			done, err := foldExecuteMessage(cmd, msg, ectx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// foldExecuteMessage 将一条执行过程消息折叠为本地事件；
// 遇到终结的 execute_reply 时返回 done=true。
func foldExecuteMessage(cmd Command, msg *protocol.Message, ectx *ExecutionContext) (bool, error) {
	switch msg.Kind {
	case protocol.KindStream:
		content := &protocol.StreamContent{}
		if err := msg.DecodeContent(content); err != nil {
			return false, err
		}
		return false, ectx.Publish(&StandardOutputProduced{Cmd: cmd, Name: content.Name, Text: content.Text})

	case protocol.KindExecuteResult:
		content := &protocol.ExecuteResult{}
		if err := msg.DecodeContent(content); err != nil {
			return false, err
		}
		return false, ectx.Publish(&ReturnValueProduced{Cmd: cmd, Data: content.Data, ExecutionCount: content.ExecutionCount})

	case protocol.KindError:
		content := &protocol.ErrorContent{}
		if err := msg.DecodeContent(content); err != nil {
			return false, err
		}
		return false, ectx.Publish(&ErrorProduced{Cmd: cmd, ErrName: content.ErrName, ErrValue: content.ErrValue, Traceback: content.Traceback})

	case protocol.KindExecuteReply:
		content := &protocol.ExecuteReply{}
		if err := msg.DecodeContent(content); err != nil {
			return true, err
		}
		if content.Status == protocol.StatusError {
			return true, ectx.Publish(&CommandFailed{Cmd: cmd, ErrName: content.ErrName, ErrValue: content.ErrValue})
		}
		return true, ectx.Publish(&CommandSucceeded{Cmd: cmd})

	case protocol.KindStatus:
		// 内核忙闲状态不映射为本地事件
		return false, nil

	default:
		logrus.Debugf("Ignoring %s message %s during execute exchange", msg.Kind, msg.MsgID)
		return false, nil
	}
}

func handleRequestValue(ctx context.Context, cmd Command, ectx *ExecutionContext) error {
	request := cmd.(*RequestValue)
	req, err := protocol.NewRequest(protocol.KindValueRequest, &protocol.ValueRequest{
		Name:     request.Name,
		MimeType: request.MimeType,
	})
	if err != nil {
		return err
	}

	replies, err := ectx.Exchange(ctx, req, protocol.KindValueReply, 1)
	if err != nil {
		return err
	}

	content := &protocol.ValueReply{}
	if err := replies[0].DecodeContent(content); err != nil {
		return err
	}
	return ectx.Publish(&ValueProduced{
		Cmd:      cmd,
		Name:     content.Name,
		MimeType: content.MimeType,
		Value:    content.Value,
	})
}

func handleRequestValueInfos(ctx context.Context, cmd Command, ectx *ExecutionContext) error {
	req, err := protocol.NewRequest(protocol.KindValueInfosRequest, nil)
	if err != nil {
		return err
	}

	replies, err := ectx.Exchange(ctx, req, protocol.KindValueInfosReply, 1)
	if err != nil {
		return err
	}

	content := &protocol.ValueInfosReply{}
	if err := replies[0].DecodeContent(content); err != nil {
		return err
	}
	return ectx.Publish(&ValueInfosProduced{Cmd: cmd, Values: content.Values})
}
