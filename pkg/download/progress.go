package download

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// progressWriter logs transfer progress at most once per second.
type progressWriter struct {
	w           io.Writer
	log         *logrus.Entry
	transferred int64
	total       int64
	startTime   time.Time
	lastLog     time.Time
}

func newProgressWriter(w io.Writer, total int64, log *logrus.Entry) *progressWriter {
	now := time.Now()
	return &progressWriter{w: w, log: log, total: total, startTime: now, lastLog: now}
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.transferred += int64(n)

	if time.Since(pw.lastLog) >= time.Second {
		pw.lastLog = time.Now()
		pw.report("Downloading")
	}
	if pw.total > 0 && pw.transferred == pw.total {
		pw.report("Download complete")
	}

	return n, err
}

func (pw *progressWriter) report(msg string) {
	elapsed := time.Since(pw.startTime)
	fields := logrus.Fields{
		"elapsed":     elapsed.Round(time.Millisecond),
		"transferred": pw.transferred,
	}
	if pw.total > 0 {
		fields["total"] = pw.total
		fields["progress"] = fmt.Sprintf("%.1f%%", float64(pw.transferred)/float64(pw.total)*100)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		fields["mbps"] = fmt.Sprintf("%.2f", float64(pw.transferred)/secs/(1024*1024))
	}
	pw.log.WithFields(fields).Info(msg)
}
