package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// startMonitor serves a read-only status dashboard over world while a
// scenario runs, grounded on monitoring.Monitor's StartServer: a
// gorilla/mux router exposing node/resource/profile endpoints on a
// listener bound before startMonitor returns, so the caller can print or
// open its URL immediately.
func startMonitor(world *worldState, port int) (string, error) {
	router := mux.NewRouter()
	router.HandleFunc("/api/nodes", world.listNodes).Methods(http.MethodGet)
	router.HandleFunc("/api/node/{id}", world.nodeDetail).Methods(http.MethodGet)
	router.HandleFunc("/api/node/{id}/inspect", world.nodeInspect).Methods(http.MethodGet)
	router.HandleFunc("/api/resource", listResources).Methods(http.MethodGet)
	router.HandleFunc("/api/profile", collectProfile).Methods(http.MethodGet)

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("http://%s", listener.Addr().String())

	go func() {
		if err := http.Serve(listener, router); err != nil {
			log.Printf("mvccpctl: monitor server stopped: %v", err)
		}
	}()

	return url, nil
}

func openDashboard(url string) {
	if err := browser.OpenURL(url); err != nil {
		log.Printf("mvccpctl: could not open browser: %v", err)
	}
}

type nodeSummary struct {
	ID       uint64  `json:"id"`
	Role     string  `json:"role"`
	Battery  float64 `json:"battery_percent"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	IsRREH   bool    `json:"is_rreh"`
	Counters map[string]int64 `json:"counters,omitempty"`
}

func (w *worldState) summarize(v *vehicle) nodeSummary {
	self := v.n.Context().Self()
	return nodeSummary{
		ID:      uint64(v.id),
		Role:    self.Role.String(),
		Battery: self.BatteryPercent() * 100,
		X:       self.Position.X,
		Y:       self.Position.Y,
		IsRREH:  v.rreh,
	}
}

func (w *worldState) listNodes(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	summaries := make([]nodeSummary, 0, len(w.vehicles))
	for _, v := range w.vehicles {
		summaries = append(summaries, w.summarize(v))
	}
	pending := w.medium.PendingCount()
	w.mu.Unlock()

	writeJSON(rw, map[string]interface{}{
		"nodes":            summaries,
		"pending_in_flight": pending,
	})
}

func (w *worldState) nodeDetail(rw http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, v := range w.vehicles {
		if fmt.Sprintf("%d", v.id) != idStr {
			continue
		}
		s := w.summarize(v)
		s.Counters = v.counters.Snapshot()
		writeJSON(rw, s)
		return
	}
	http.NotFound(rw, r)
}

// nodeInspect exposes a vehicle's full identity.State via reflection rather
// than a hand-picked summary, for ad hoc debugging where nodeSummary's fixed
// field set doesn't have what's needed. An optional ?field=a.b.c query walks
// into a nested field the way listFieldValue's dotted path does, so a caller
// can pull e.g. field=Position.X without the server needing a case for it.
func (w *worldState) nodeInspect(rw http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, v := range w.vehicles {
		if fmt.Sprintf("%d", v.id) != idStr {
			continue
		}
		serializer := goseth.NewSerializer()
		serializer.SetRoot(v.n.Context().Self())
		serializer.SetMaxDepth(2)

		if path := r.URL.Query().Get("field"); path != "" {
			if err := serializer.SetEntryPoint(strings.Split(path, ".")); err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
				return
			}
		}

		rw.Header().Set("Content-Type", "application/json")
		if err := serializer.Serialize(rw); err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	http.NotFound(rw, r)
}

func writeJSON(rw http.ResponseWriter, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		log.Printf("mvccpctl: writing response: %v", err)
	}
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func listResources(rw http.ResponseWriter, r *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	memInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(rw, resourceRsp{CPUPercent: cpuPercent, MemorySize: memInfo.RSS})
}

// collectProfile samples one second of CPU profile and returns it as JSON,
// the same shape monitoring.Monitor's own /api/profile endpoint uses.
func collectProfile(rw http.ResponseWriter, r *http.Request) {
	buf := bytes.NewBuffer(nil)
	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(rw, prof)
}
