package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type flowStat struct {
	messages int64
	bytes    int64
}

var (
	errorsTotal  int64
	warnsTotal   int64
	rateFetches  int64
	catalogPages int64
	bulkWrites   int64
	reportsSent  int64
	flows        sync.Map // map[string]*flowStat
	components   sync.Map // map[string]*int64, warn+error tally per component
)

func recordWarn(component string) {
	atomic.AddInt64(&warnsTotal, 1)
	recordComponent(component)
}

func recordError(component string) {
	atomic.AddInt64(&errorsTotal, 1)
	recordComponent(component)
}

func recordComponent(component string) {
	v, _ := components.LoadOrStore(component, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// IncrementRateFetch records a successful spot rate fetch of the given
// payload size.
func IncrementRateFetch(size int) {
	atomic.AddInt64(&rateFetches, 1)
	recordFlow("rate_api", size)
}

// IncrementCatalogPage records a fetched catalog page of the given payload
// size.
func IncrementCatalogPage(size int) {
	atomic.AddInt64(&catalogPages, 1)
	recordFlow("catalog_rest", size)
}

// IncrementBulkWrite records a dispatched bulk mutation payload.
func IncrementBulkWrite(size int) {
	atomic.AddInt64(&bulkWrites, 1)
	recordFlow("bulk_write", size)
}

// IncrementReportSent records an emailed run report.
func IncrementReportSent(size int) {
	atomic.AddInt64(&reportsSent, 1)
	recordFlow("email_report", size)
}

func RecordFlowMessage(name string, size int) {
	recordFlow(name, size)
}

func recordFlow(name string, size int) {
	v, _ := flows.LoadOrStore(name, &flowStat{})
	fs := v.(*flowStat)
	atomic.AddInt64(&fs.messages, 1)
	atomic.AddInt64(&fs.bytes, int64(size))
}

// StartReport begins periodic logging of system and data flow statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	flowData := map[string]map[string]int64{}
	flows.Range(func(k, v any) bool {
		name := k.(string)
		fs := v.(*flowStat)
		flowData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&fs.messages),
			"bytes":    atomic.LoadInt64(&fs.bytes),
		}
		return true
	})
	componentData := map[string]int64{}
	components.Range(func(k, v any) bool {
		componentData[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_total":  atomic.LoadInt64(&errorsTotal),
		"warns_total":   atomic.LoadInt64(&warnsTotal),
		"rate_fetches":  atomic.LoadInt64(&rateFetches),
		"catalog_pages": atomic.LoadInt64(&catalogPages),
		"bulk_writes":   atomic.LoadInt64(&bulkWrites),
		"reports_sent":  atomic.LoadInt64(&reportsSent),
		"goroutines":    runtime.NumGoroutine(),
		"cpu_percent":   cpuPct,
		"memory_mb":     int64(memStats.Used) / 1024 / 1024,
		"disk_mb":       int64(diskStats.Used) / 1024 / 1024,
		"flows":         flowData,
		"components":    componentData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsTotal"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsTotal)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsTotal"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsTotal)))},
		cwtypes.MetricDatum{MetricName: aws.String("RateFetches"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&rateFetches)))},
		cwtypes.MetricDatum{MetricName: aws.String("CatalogPages"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&catalogPages)))},
		cwtypes.MetricDatum{MetricName: aws.String("BulkWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&bulkWrites)))},
		cwtypes.MetricDatum{MetricName: aws.String("ReportsSent"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&reportsSent)))},
	)

	for name, stats := range flowData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("FlowMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("FlowBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
