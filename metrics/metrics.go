// Package metrics defines prometheus metric types and provides convenience
// methods to add accounting to the socket and decode paths.
//
// When defining new operations or metrics, these are helpful values to track:
//  - things coming into or go out of the system: requests, files, tests, api calls.
//  - the success or error status of any of the above.
//  - the distribution of processing latency.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyscallLatency tracks the latency of the underlying send/recv
	// syscalls. It does NOT include time spent decoding the received bytes.
	SyscallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nldl_syscall_latency_seconds",
			Help: "netlink syscall latency distribution (seconds)",
			Buckets: []float64{
				0.00001, 0.0000125, 0.000016, 0.00002, 0.000025, 0.000032, 0.00004, 0.00005,
				0.0001, 0.000125, 0.00016, 0.0002, 0.00025, 0.00032, 0.0004, 0.0005,
				0.001, 0.00125, 0.0016, 0.002, 0.0025, 0.0032, 0.004, 0.005,
				0.01, 0.0125, 0.016, 0.02, 0.025, 0.032, 0.04, 0.05,
				0.1, 0.2,
			},
		},
		[]string{"op"})

	// RecvBytesHistogram tracks how many bytes each Recv call returned from
	// the socket, before any decoding.
	RecvBytesHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "nldl_recv_bytes_histogram",
			Help: "bytes returned per netlink recv call",
			Buckets: []float64{
				16, 32, 64, 128, 256, 512,
				1024, 2048, 4096, 8192, 16384, 32768,
			},
		},
	)

	// DecodeErrorCount counts decode failures by the layer that produced
	// them (nla, nlmsg, genl), so a malformed-stream problem can be
	// localized without parsing logs.
	//
	// Example usage:
	//   metrics.DecodeErrorCount.With(prometheus.Labels{"layer": "nla"}).Inc()
	DecodeErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nldl_decode_error_total",
			Help: "The total number of message/attribute decode failures.",
		}, []string{"layer"})

	// SendCount counts successful Socket.Send calls by family: the label is
	// "nlctrl" for the controller family id 0x10 and "other" for any other id.
	SendCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nldl_send_total",
			Help: "Number of netlink requests sent.",
		}, []string{"family"})

	// MultipartMessageCount counts decoded messages per multipart dump,
	// recorded once the iterator reaches a terminal state.
	MultipartMessageCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "nldl_multipart_message_count_histogram",
			Help: "messages decoded per multipart dump",
			Buckets: []float64{
				1, 2, 3, 4, 5, 6, 8,
				10, 12.5, 16, 20, 25, 32, 40, 50, 63, 79,
				100, 125, 160, 200, 250, 320, 400, 500,
			},
		},
	)
)

// init() prints a log message to let the user know that the package has
// been loaded and the metrics registered. The metrics are auto-registered,
// which means they are registered as soon as this package is loaded, and
// the exact time this occurs (and whether this occurs at all in a given
// context) can be opaque.
func init() {
	log.Println("Prometheus metrics in nldl.metrics are registered.")
}
