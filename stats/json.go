/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// JSONServer exposes the counter registry over plain HTTP, grounded on
// ptp4u/stats/json.go's handleRequest shape.
type JSONServer struct {
	reg *Registry
}

// NewJSONServer wraps reg for HTTP exposition.
func NewJSONServer(reg *Registry) *JSONServer { return &JSONServer{reg: reg} }

// Start runs the JSON http server on port. Blocks; callers run it in a
// goroutine, matching ptp4u/stats.Start.
func (s *JSONServer) Start(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)
	addr := fmt.Sprintf(":%d", port)
	log.Infof("stats: starting json server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("stats: failed to start json listener: %v", err)
	}
}

func (s *JSONServer) handleRequest(w http.ResponseWriter, _ *http.Request) {
	snap := s.reg.Snapshot()
	m := map[string]uint64{}
	for _, name := range Names() {
		m[name] = *ptrFor(&snap, name)
	}
	js, err := json.Marshal(m)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		log.Errorf("stats: failed to reply: %v", err)
	}
}
