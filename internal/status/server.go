// Package status exposes the muxer's priority table over HTTP: a snapshot
// API for polling clients and a server-sent event stream for live ones.
package status

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/huma/v2/sse"

	"libdb.so/luxmux/internal/muxer"
)

// Server serves a read-only view of a Muxer's state.
type Server struct {
	mux        *muxer.Muxer
	httpServer *http.Server
}

// New builds a status Server bound to listen, backed by mux.
func New(mux *muxer.Muxer, listen string) *Server {
	serveMux := http.NewServeMux()

	config := huma.DefaultConfig("luxmux status", "1.0.0")
	config.Info.Description = "Read-only view of the priority multiplexer's current state"
	config.Servers = []*huma.Server{}
	api := humago.New(serveMux, config)

	s := &Server{
		mux:        mux,
		httpServer: &http.Server{Addr: listen, Handler: serveMux},
	}
	s.registerRoutes(api)
	return s
}

// Run starts the HTTP server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.httpServer.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

type priorityInfo struct {
	Priority    uint8  `json:"priority" doc:"Slot in [0, 255]; lower wins"`
	ComponentId string `json:"componentId" doc:"Kind of source occupying the slot"`
	Origin      string `json:"origin"`
	Owner       string `json:"owner"`
	Active      bool   `json:"active"`
	TimeoutMs   int64  `json:"timeoutMs" doc:"-100 inactive, -1 persistent, else absolute deadline in ms"`
}

func toPriorityInfo(in muxer.InputInfo) priorityInfo {
	return priorityInfo{
		Priority:    uint8(in.Priority),
		ComponentId: in.ComponentId.String(),
		Origin:      in.Origin,
		Owner:       in.Owner,
		Active:      in.Deadline.Active(),
		TimeoutMs:   in.Deadline.Millis(),
	}
}

type prioritiesOutput struct {
	Body struct {
		Priorities []priorityInfo `json:"priorities"`
		Visible    uint8          `json:"visible"`
	}
}

type priorityPathInput struct {
	Priority uint8 `path:"priority"`
}

type priorityOutput struct {
	Body priorityInfo
}

type visibleOutput struct {
	Body struct {
		Priority uint8    `json:"priority"`
		LEDs     [][3]int `json:"leds"`
	}
}

func (s *Server) registerRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-priorities",
		Method:      http.MethodGet,
		Path:        "/priorities",
		Summary:     "List registered priorities",
		Tags:        []string{"priorities"},
	}, func(ctx context.Context, _ *struct{}) (*prioritiesOutput, error) {
		var out prioritiesOutput
		for _, p := range s.mux.GetPriorities() {
			out.Body.Priorities = append(out.Body.Priorities, toPriorityInfo(s.mux.GetInputInfo(p)))
		}
		out.Body.Visible = uint8(s.mux.GetVisible().Priority)
		return &out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-priority",
		Method:      http.MethodGet,
		Path:        "/priorities/{priority}",
		Summary:     "Get a single priority's record",
		Tags:        []string{"priorities"},
		Errors:      []int{404},
	}, func(ctx context.Context, input *priorityPathInput) (*priorityOutput, error) {
		p := muxer.Priority(input.Priority)
		if !s.mux.HasPriority(p) {
			return nil, huma.Error404NotFound("priority not registered")
		}
		return &priorityOutput{Body: toPriorityInfo(s.mux.GetInputInfo(p))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-visible",
		Method:      http.MethodGet,
		Path:        "/visible",
		Summary:     "Get the currently visible priority and its LED colors",
		Tags:        []string{"priorities"},
	}, func(ctx context.Context, _ *struct{}) (*visibleOutput, error) {
		visible := s.mux.GetVisible()
		var out visibleOutput
		out.Body.Priority = uint8(visible.Priority)
		out.Body.LEDs = make([][3]int, len(visible.LEDColors))
		for i, c := range visible.LEDColors {
			out.Body.LEDs[i] = [3]int{int(c.R()), int(c.G()), int(c.B())}
		}
		return &out, nil
	})

	sse.Register(api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Server-sent stream of priority and visibility changes",
		Tags:        []string{"events"},
	}, map[string]any{
		"priority-changed":     muxer.PriorityChangedEvent{},
		"active-state-changed": muxer.ActiveStateChangedEvent{},
		"visible-priority":     muxer.VisiblePriorityChangedEvent{},
		"auto-select-changed":  muxer.AutoSelectChangedEvent{},
		"priorities-changed":   muxer.PrioritiesChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		ch := make(chan any, 16)
		nonBlockingSend := func(ev any) {
			select {
			case ch <- ev:
			default:
			}
		}

		unsubs := []func(){
			s.mux.Bus().OnPriorityChanged(func(e muxer.PriorityChangedEvent) { nonBlockingSend(e) }),
			s.mux.Bus().OnActiveStateChanged(func(e muxer.ActiveStateChangedEvent) { nonBlockingSend(e) }),
			s.mux.Bus().OnVisiblePriorityChanged(func(e muxer.VisiblePriorityChangedEvent) { nonBlockingSend(e) }),
			s.mux.Bus().OnAutoSelectChanged(func(e muxer.AutoSelectChangedEvent) { nonBlockingSend(e) }),
			s.mux.Bus().OnPrioritiesChanged(func(e muxer.PrioritiesChangedEvent) { nonBlockingSend(e) }),
		}
		defer func() {
			for _, unsub := range unsubs {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
