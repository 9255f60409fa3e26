// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package process

import (
	"log/slog"

	"github.com/kadirpekel/llmproc/pkg/provider"
)

// Observer receives the executor's well-defined callback points. Every
// method is optional; a nil func field is simply skipped. Delivery
// follows registration order, and a panic inside any one callback is
// recovered and logged rather than propagated into the run loop.
type Observer struct {
	ToolStart   func(name string, args map[string]any)
	ToolEnd     func(name string, result string, isError bool)
	Response    func(text string)
	APIResponse func(usage provider.Usage)
	TurnStart   func(p *Process)
	TurnEnd     func(p *Process, stopReason provider.StopReason)
}

// Observe registers obs to receive this Process's callback points for the
// remainder of its lifetime.
func (p *Process) Observe(obs Observer) {
	p.obs.Register(obs)
}

// observers is the registered set for one Process, delivered in
// registration order with an error boundary around each call.
type observers struct {
	log *slog.Logger
	set []Observer
}

func newObservers(log *slog.Logger) *observers {
	return &observers{log: log}
}

// Register appends obs to the delivery set.
func (o *observers) Register(obs Observer) {
	o.set = append(o.set, obs)
}

func (o *observers) guard(point string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("callback panicked", "point", point, "recover", r)
		}
	}()
	fn()
}

func (o *observers) toolStart(name string, args map[string]any) {
	for _, obs := range o.set {
		if obs.ToolStart == nil {
			continue
		}
		cb := obs.ToolStart
		o.guard("tool_start", func() { cb(name, args) })
	}
}

func (o *observers) toolEnd(name, result string, isError bool) {
	for _, obs := range o.set {
		if obs.ToolEnd == nil {
			continue
		}
		cb := obs.ToolEnd
		o.guard("tool_end", func() { cb(name, result, isError) })
	}
}

func (o *observers) response(text string) {
	for _, obs := range o.set {
		if obs.Response == nil {
			continue
		}
		cb := obs.Response
		o.guard("response", func() { cb(text) })
	}
}

func (o *observers) apiResponse(usage provider.Usage) {
	for _, obs := range o.set {
		if obs.APIResponse == nil {
			continue
		}
		cb := obs.APIResponse
		o.guard("api_response", func() { cb(usage) })
	}
}

func (o *observers) turnStart(p *Process) {
	for _, obs := range o.set {
		if obs.TurnStart == nil {
			continue
		}
		cb := obs.TurnStart
		o.guard("turn_start", func() { cb(p) })
	}
}

func (o *observers) turnEnd(p *Process, stopReason provider.StopReason) {
	for _, obs := range o.set {
		if obs.TurnEnd == nil {
			continue
		}
		cb := obs.TurnEnd
		o.guard("turn_end", func() { cb(p, stopReason) })
	}
}
