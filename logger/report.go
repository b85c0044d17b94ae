package logger

import (
	"context"
	"os"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type counter struct {
	count int64
	bytes int64
}

var (
	warns    sync.Map // component -> *int64
	errs     sync.Map // component -> *int64
	counters sync.Map // name -> *counter
)

func bump(m *sync.Map, key string) {
	v, _ := m.LoadOrStore(key, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

func recordWarn(component string)  { bump(&warns, component) }
func recordError(component string) { bump(&errs, component) }

// RecordStreamMessage counts an inbound or outbound frame under name.
func RecordStreamMessage(name string, size int) {
	v, _ := counters.LoadOrStore(name, &counter{})
	c := v.(*counter)
	atomic.AddInt64(&c.count, 1)
	atomic.AddInt64(&c.bytes, int64(size))
}

func snapshotCounts(m *sync.Map) map[string]int64 {
	out := map[string]int64{}
	m.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return out
}

// StartReport logs a runtime report every interval until ctx is done.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				LogReport(ctx, log)
			}
		}
	}()
}

// LogReport logs warn/error counts per component, frame counters and
// process resource usage, and publishes the resource figures to CloudWatch.
func LogReport(ctx context.Context, log *Log) {
	streams := map[string]map[string]int64{}
	names := make([]string, 0)
	counters.Range(func(k, v any) bool {
		name := k.(string)
		c := v.(*counter)
		streams[name] = map[string]int64{
			"messages": atomic.LoadInt64(&c.count),
			"bytes":    atomic.LoadInt64(&c.bytes),
		}
		names = append(names, name)
		return true
	})
	sort.Strings(names)

	cpuPct := 0.0
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		cpuPct = pct[0]
	}
	var rssMB float64
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			rssMB = float64(info.RSS) / 1024 / 1024
		}
	}
	var usedMB float64
	if vm, err := mem.VirtualMemory(); err == nil {
		usedMB = float64(vm.Used) / 1024 / 1024
	}

	log.WithComponent("report").WithFields(Fields{
		"warns":       snapshotCounts(&warns),
		"errors":      snapshotCounts(&errs),
		"streams":     streams,
		"goroutines":  runtime.NumGoroutine(),
		"cpu_percent": cpuPct,
		"rss_mb":      rssMB,
		"memory_mb":   usedMB,
	}).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("ProcessRSSMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(rssMB)},
	}
	for _, name := range names {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("StreamMessages"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Stream"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(streams[name]["messages"])),
		})
	}
	publishMetrics(ctx, data)
}
