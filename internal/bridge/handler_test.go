package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/megamanics/interactive/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReply(t *testing.T, req *protocol.Message, kind protocol.Kind, content interface{}) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewReply(req, kind, content)
	require.NoError(t, err)
	return msg
}

func TestKernelInfoExchange_CarriesAllFields(t *testing.T) {
	messenger, connector, cleanup := newTestRig(t)
	defer cleanup()

	messenger.OnKind(protocol.KindKernelInfoRequest, func(req *protocol.Message) []*protocol.Message {
		return []*protocol.Message{
			mustReply(t, req, protocol.KindKernelInfoReply, &protocol.KernelInfoReply{
				Implementation:        "test-kernel",
				ImplementationVersion: "1.0",
				LanguageInfo:          &protocol.LanguageInfo{Name: "py", Version: "3.11"},
			}),
		}
	})

	sub, cancel := connector.Subscribe()
	defer cancel()

	cmd := &RequestKernelInfo{}
	require.NoError(t, connector.Dispatch(context.Background(), cmd))

	events := drainEvents(sub, cmd)
	require.Len(t, events, 1)
	produced, ok := events[0].(*KernelInfoProduced)
	require.True(t, ok, "expected KernelInfoProduced, got %T", events[0])
	assert.Equal(t, "test-kernel", produced.Info.Implementation)
	assert.Equal(t, "1.0", produced.Info.ImplementationVersion)
	assert.Equal(t, "py", produced.Info.LanguageName)
	assert.Equal(t, "3.11", produced.Info.LanguageVersion)
}

func TestKernelInfoExchange_AbsentLanguageInfoIsValid(t *testing.T) {
	messenger, connector, cleanup := newTestRig(t)
	defer cleanup()

	messenger.OnKind(protocol.KindKernelInfoRequest, func(req *protocol.Message) []*protocol.Message {
		return []*protocol.Message{
			mustReply(t, req, protocol.KindKernelInfoReply, &protocol.KernelInfoReply{
				Implementation: "test-kernel",
			}),
		}
	})

	sub, cancel := connector.Subscribe()
	defer cancel()

	cmd := &RequestKernelInfo{}
	require.NoError(t, connector.Dispatch(context.Background(), cmd))

	events := drainEvents(sub, cmd)
	require.Len(t, events, 1)
	produced, ok := events[0].(*KernelInfoProduced)
	require.True(t, ok)
	assert.Equal(t, "test-kernel", produced.Info.Implementation)
	assert.Empty(t, produced.Info.LanguageName)
	assert.Empty(t, produced.Info.LanguageVersion)
}

func TestSubmitCode_FoldsReplySequenceInOrder(t *testing.T) {
	messenger, connector, cleanup := newTestRig(t)
	defer cleanup()

	messenger.OnKind(protocol.KindExecuteRequest, func(req *protocol.Message) []*protocol.Message {
		return []*protocol.Message{
			mustReply(t, req, protocol.KindStatus, &protocol.StatusContent{ExecutionState: "busy"}),
			mustReply(t, req, protocol.KindStream, &protocol.StreamContent{Name: "stdout", Text: "hello\n"}),
			mustReply(t, req, protocol.KindExecuteResult, &protocol.ExecuteResult{
				Data:           map[string]string{"text/plain": "42"},
				ExecutionCount: 1,
			}),
			mustReply(t, req, protocol.KindExecuteReply, &protocol.ExecuteReply{Status: protocol.StatusOK}),
		}
	})

	sub, cancel := connector.Subscribe()
	defer cancel()

	cmd := &SubmitCode{Code: "print('hello'); 42"}
	require.NoError(t, connector.Dispatch(context.Background(), cmd))

	events := drainEvents(sub, cmd)
	require.Len(t, events, 3)

	stdout, ok := events[0].(*StandardOutputProduced)
	require.True(t, ok, "expected StandardOutputProduced first, got %T", events[0])
	assert.Equal(t, "stdout", stdout.Name)
	assert.Equal(t, "hello\n", stdout.Text)

	result, ok := events[1].(*ReturnValueProduced)
	require.True(t, ok, "expected ReturnValueProduced second, got %T", events[1])
	assert.Equal(t, "42", result.Data["text/plain"])
	assert.Equal(t, 1, result.ExecutionCount)

	_, ok = events[2].(*CommandSucceeded)
	require.True(t, ok, "expected CommandSucceeded last, got %T", events[2])
}

func TestSubmitCode_ErrorReplyProducesCommandFailed(t *testing.T) {
	messenger, connector, cleanup := newTestRig(t)
	defer cleanup()

	messenger.OnKind(protocol.KindExecuteRequest, func(req *protocol.Message) []*protocol.Message {
		return []*protocol.Message{
			mustReply(t, req, protocol.KindError, &protocol.ErrorContent{
				ErrName:  "NameError",
				ErrValue: "name 'x' is not defined",
			}),
			mustReply(t, req, protocol.KindExecuteReply, &protocol.ExecuteReply{
				Status:   protocol.StatusError,
				ErrName:  "NameError",
				ErrValue: "name 'x' is not defined",
			}),
		}
	})

	sub, cancel := connector.Subscribe()
	defer cancel()

	cmd := &SubmitCode{Code: "x"}
	require.NoError(t, connector.Dispatch(context.Background(), cmd))

	events := drainEvents(sub, cmd)
	require.Len(t, events, 2)

	errEvent, ok := events[0].(*ErrorProduced)
	require.True(t, ok)
	assert.Equal(t, "NameError", errEvent.ErrName)

	failed, ok := events[1].(*CommandFailed)
	require.True(t, ok)
	assert.Equal(t, "name 'x' is not defined", failed.ErrValue)
}

func TestRequestValue_ProducesValue(t *testing.T) {
	messenger, connector, cleanup := newTestRig(t)
	defer cleanup()

	messenger.OnKind(protocol.KindValueRequest, func(req *protocol.Message) []*protocol.Message {
		content := &protocol.ValueRequest{}
		require.NoError(t, req.DecodeContent(content))
		return []*protocol.Message{
			mustReply(t, req, protocol.KindValueReply, &protocol.ValueReply{
				Name:     content.Name,
				MimeType: "text/plain",
				Value:    "42",
			}),
		}
	})

	sub, cancel := connector.Subscribe()
	defer cancel()

	cmd := &RequestValue{Name: "answer"}
	require.NoError(t, connector.Dispatch(context.Background(), cmd))

	events := drainEvents(sub, cmd)
	require.Len(t, events, 1)
	produced, ok := events[0].(*ValueProduced)
	require.True(t, ok)
	assert.Equal(t, "answer", produced.Name)
	assert.Equal(t, "42", produced.Value)
}

func TestRequestValueInfos_ProducesInfos(t *testing.T) {
	messenger, connector, cleanup := newTestRig(t)
	defer cleanup()

	messenger.OnKind(protocol.KindValueInfosRequest, func(req *protocol.Message) []*protocol.Message {
		return []*protocol.Message{
			mustReply(t, req, protocol.KindValueInfosReply, &protocol.ValueInfosReply{
				Values: []protocol.ValueInfo{
					{Name: "x", TypeName: "int", PreviewValue: "1"},
					{Name: "y", TypeName: "str", PreviewValue: "hi"},
				},
			}),
		}
	})

	sub, cancel := connector.Subscribe()
	defer cancel()

	cmd := &RequestValueInfos{}
	require.NoError(t, connector.Dispatch(context.Background(), cmd))

	events := drainEvents(sub, cmd)
	require.Len(t, events, 1)
	produced, ok := events[0].(*ValueInfosProduced)
	require.True(t, ok)
	require.Len(t, produced.Values, 2)
	assert.Equal(t, "x", produced.Values[0].Name)
}

func TestDispatch_PropagatesTransportFailure(t *testing.T) {
	messenger, connector, cleanup := newTestRig(t)
	defer cleanup()

	sendErr := errors.New("socket closed")
	messenger.FailSends(sendErr)

	err := connector.Dispatch(context.Background(), &RequestKernelInfo{})
	require.ErrorIs(t, err, sendErr)
}

func TestDispatch_CancelledWhenReplyNeverArrives(t *testing.T) {
	_, connector, cleanup := newTestRig(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := connector.Dispatch(ctx, &RequestKernelInfo{})
	require.ErrorIs(t, err, ErrCancelled)
}

func TestConcurrentDispatches_DoNotCrossDeliver(t *testing.T) {
	messenger, connector, cleanup := newTestRig(t)
	defer cleanup()

	messenger.OnKind(protocol.KindValueRequest, func(req *protocol.Message) []*protocol.Message {
		content := &protocol.ValueRequest{}
		require.NoError(t, req.DecodeContent(content))
		return []*protocol.Message{
			mustReply(t, req, protocol.KindValueReply, &protocol.ValueReply{
				Name:  content.Name,
				Value: "value-of-" + content.Name,
			}),
		}
	})

	sub, cancel := connector.Subscribe()
	defer cancel()

	names := []string{"a", "b", "c", "d", "e", "f"}
	commands := make([]*RequestValue, len(names))
	errs := make([]error, len(names))
	done := make(chan int, len(names))
	for i, name := range names {
		commands[i] = &RequestValue{Name: name}
		go func(i int) {
			errs[i] = connector.Dispatch(context.Background(), commands[i])
			done <- i
		}(i)
	}
	for range names {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent dispatches hung")
		}
	}

	var all []Event
	for {
		select {
		case item := <-sub:
			if item.Event != nil {
				all = append(all, item.Event)
			}
			continue
		default:
		}
		break
	}

	for i, cmd := range commands {
		require.NoError(t, errs[i])
		var events []Event
		for _, event := range all {
			if event.Command() == cmd {
				events = append(events, event)
			}
		}
		require.Len(t, events, 1, "command %s", cmd.Name)
		produced := events[0].(*ValueProduced)
		assert.Equal(t, "value-of-"+cmd.Name, produced.Value, "command %s received another exchange's reply", cmd.Name)
	}
}
