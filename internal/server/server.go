package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/megamanics/interactive/internal/bridge"
	"github.com/megamanics/interactive/internal/history"
	"github.com/megamanics/interactive/internal/server/auth"
	"github.com/megamanics/interactive/internal/server/response"
	"github.com/megamanics/interactive/internal/server/ws"
	"github.com/megamanics/interactive/internal/util"
	"github.com/sirupsen/logrus"
)

// Options HTTP 服务构造参数
type Options struct {
	ListenAddr      string
	JWTSecret       string
	ExchangeTimeout time.Duration
	Connector       *bridge.Connector
	History         history.Store
	Hub             *ws.Hub
}

// Server 面向宿主应用的 HTTP/WebSocket 入口
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	opts       Options
}

// NewServer 构建路由与中间件
func NewServer(opts Options) *Server {
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = 30 * time.Second
	}
	auth.SetSecret(opts.JWTSecret)

	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
	}

	s.router.Use(auth.Middleware)
	s.router.HandleFunc("/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/api/kernel/info", s.handleKernelInfo).Methods("GET")
	s.router.HandleFunc("/api/kernel/execute", s.handleExecute).Methods("POST")
	s.router.HandleFunc("/api/values", s.handleValueInfos).Methods("GET")
	s.router.HandleFunc("/api/values/{name}", s.handleValue).Methods("GET")
	s.router.HandleFunc("/api/exchanges", s.handleExchanges).Methods("GET")
	s.router.HandleFunc("/ws/events", s.handleEvents).Methods("GET")

	s.httpServer = &http.Server{Addr: opts.ListenAddr, Handler: s.router}
	return s
}

// Start 监听并服务，阻塞直到关闭
func (s *Server) Start() error {
	logrus.Infof("HTTP server listening on %s", s.opts.ListenAddr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop 优雅关闭
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response.Success(map[string]string{"status": "ok"}).WriteJSON(w)
}

// dispatchAndCollect 订阅总线后派发命令，返回属于该命令的事件。
// 订阅先于派发注册；Dispatch 返回时事件已在订阅缓冲中。
func (s *Server) dispatchAndCollect(ctx context.Context, cmd bridge.Command) ([]bridge.Event, error) {
	sub, cancel := s.opts.Connector.Subscribe()
	defer cancel()

	dispatchCtx, cancelDispatch := context.WithTimeout(ctx, s.opts.ExchangeTimeout)
	defer cancelDispatch()

	if err := s.opts.Connector.Dispatch(dispatchCtx, cmd); err != nil {
		return nil, err
	}

	var events []bridge.Event
	for {
		select {
		case item := <-sub:
			if item.Event != nil && item.Event.Command() == cmd {
				events = append(events, item.Event)
			}
		default:
			return events, nil
		}
	}
}

func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	if errors.Is(err, bridge.ErrCancelled) {
		response.GatewayTimeout(err.Error()).WriteJSON(w)
		return
	}
	response.InternalError(err.Error()).WriteJSON(w)
}

func (s *Server) handleKernelInfo(w http.ResponseWriter, r *http.Request) {
	cmd := &bridge.RequestKernelInfo{}
	events, err := s.dispatchAndCollect(r.Context(), cmd)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}

	for _, event := range events {
		if produced, ok := event.(*bridge.KernelInfoProduced); ok {
			response.Success(produced.Info).WriteJSON(w)
			return
		}
	}
	response.InternalError("kernel info exchange produced no result").WriteJSON(w)
}

type executeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	req := &executeRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest("invalid request body: " + err.Error()).WriteJSON(w)
		return
	}
	if req.Code == "" {
		response.BadRequest("code is required").WriteJSON(w)
		return
	}

	cmd := &bridge.SubmitCode{Code: req.Code}
	events, err := s.dispatchAndCollect(r.Context(), cmd)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}

	frames := make([]ws.EventFrame, 0, len(events))
	for _, event := range events {
		frames = append(frames, ws.FrameOf(bridge.CommandOrEvent{Event: event}))
	}
	response.Success(frames).WriteJSON(w)
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cmd := &bridge.RequestValue{Name: name, MimeType: r.URL.Query().Get("mime_type")}
	events, err := s.dispatchAndCollect(r.Context(), cmd)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}

	for _, event := range events {
		if produced, ok := event.(*bridge.ValueProduced); ok {
			response.Success(produced).WriteJSON(w)
			return
		}
	}
	response.InternalError("value exchange produced no result").WriteJSON(w)
}

func (s *Server) handleValueInfos(w http.ResponseWriter, r *http.Request) {
	cmd := &bridge.RequestValueInfos{}
	events, err := s.dispatchAndCollect(r.Context(), cmd)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}

	for _, event := range events {
		if produced, ok := event.(*bridge.ValueInfosProduced); ok {
			response.Success(produced.Values).WriteJSON(w)
			return
		}
	}
	response.InternalError("value infos exchange produced no result").WriteJSON(w)
}

func (s *Server) handleExchanges(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		response.Success([]*history.Entry{}).WriteJSON(w)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest("invalid limit").WriteJSON(w)
			return
		}
		limit = n
	}

	entries, err := s.opts.History.Recent(limit)
	if err != nil {
		response.InternalError(err.Error()).WriteJSON(w)
		return
	}
	response.Success(entries).WriteJSON(w)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.opts.Hub == nil {
		response.InternalError("event hub is not configured").WriteJSON(w)
		return
	}
	s.opts.Hub.HandleWebSocket(w, r, util.GenIDWith("ws-"))
}
