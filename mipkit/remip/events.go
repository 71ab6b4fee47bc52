// Copyright 2010-2024 Google LLC
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

package remip

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	log "github.com/golang/glog"
)

// maxEventLine bounds a single `data:` line; result events carry every variable value.
const maxEventLine = 16 << 20

type resultEvent struct {
	Solution *solutionDict `json:"solution"`
	solutionDict
}

// readEvents consumes a Server-Sent Events stream until EOF and returns the last result.
// Undecodable data lines are logged and skipped. A stream without a result event reports
// "not solved".
func (c *Client) readEvents(r io.Reader) (*solutionDict, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventLine)

	var (
		event  string
		status string
		result *solutionDict
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.TrimSpace(line) == "":
			event = ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if event == "" {
				continue
			}
			data := []byte(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			if err := c.dispatch(event, data, &status, &result); err != nil {
				log.Warningf("remip: skipping %s event %q: %v", event, data, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("remip: reading event stream: %w", err)
	}
	if result == nil {
		log.Warning("remip: event stream ended without a result")
		return &solutionDict{Status: "not solved"}, nil
	}
	if result.Status == "" {
		result.Status = status
	}
	return result, nil
}

func (c *Client) dispatch(event string, data []byte, status *string, result **solutionDict) error {
	switch event {
	case "result":
		var ev resultEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		sd := ev.solutionDict
		if ev.Solution != nil {
			sd = *ev.Solution
		}
		*result = &sd
	case "status":
		var ev struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		*status = ev.Status
	case "log":
		var ev LogEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		if c.OnLog != nil {
			c.OnLog(ev)
		}
	case "metric":
		var ev MetricEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		if c.OnMetric != nil {
			c.OnMetric(ev)
		}
	}
	return nil
}
