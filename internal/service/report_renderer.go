package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"path"
	"quiz_master_backend/internal/util"
	"quiz_master_backend/pkg/logger"

	"github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"
)

type ReportKind int

const (
	BarSeries ReportKind = iota
	PieSeries
)

func (k ReportKind) String() string {
	switch k {
	case BarSeries:
		return "bar"
	case PieSeries:
		return "pie"
	default:
		return fmt.Sprintf("ReportKind(%d)", int(k))
	}
}

// ReportSeries 一张图的数据，Labels 与 Values 一一对应
type ReportSeries struct {
	Title  string
	XLabel string
	YLabel string
	Labels []string
	Values []float64
}

// ArtifactStore 统计图的写入目标
type ArtifactStore interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

// ReportRenderer 把序列渲染成图片并保存，返回访问地址
type ReportRenderer interface {
	Render(ctx context.Context, kind ReportKind, series ReportSeries, outputPath string) (string, error)
}

const (
	reportWidth  = 640
	reportHeight = 480
)

// ChartRenderer 基于 go-chart 输出 PNG
type ChartRenderer struct {
	Store ArtifactStore
}

func NewChartRenderer(store ArtifactStore) *ChartRenderer {
	return &ChartRenderer{Store: store}
}

func (r *ChartRenderer) Render(ctx context.Context, kind ReportKind, series ReportSeries, outputPath string) (string, error) {
	if len(series.Labels) != len(series.Values) {
		return "", fmt.Errorf("%w: %d labels for %d values", util.ErrRender, len(series.Labels), len(series.Values))
	}

	var buf bytes.Buffer
	var err error
	switch kind {
	case BarSeries:
		err = renderBar(&buf, series)
	case PieSeries:
		err = renderPie(&buf, series)
	default:
		err = fmt.Errorf("unknown report kind %s", kind)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", util.ErrRender, outputPath, err)
	}

	filename := path.Join(util.ReportDir, outputPath)
	url, err := r.Store.Upload(ctx, filename, bytes.NewReader(buf.Bytes()), int64(buf.Len()), util.MimePNG)
	if err != nil {
		return "", fmt.Errorf("%w: save %s: %v", util.ErrRender, filename, err)
	}

	logger.Log.Debug("Report rendered",
		zap.String("kind", kind.String()),
		zap.String("file", filename),
		zap.Int("points", len(series.Values)))
	return url, nil
}

func renderBar(w io.Writer, series ReportSeries) error {
	if len(series.Values) == 0 {
		return renderPlaceholder(w)
	}

	maxValue := 1.0
	bars := make([]chart.Value, len(series.Values))
	for i, v := range series.Values {
		bars[i] = chart.Value{Label: series.Labels[i], Value: v}
		if v > maxValue {
			maxValue = v
		}
	}

	title := series.Title
	if title == "" && series.XLabel != "" {
		title = series.YLabel + " by " + series.XLabel
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    reportWidth,
		Height:   reportHeight,
		BarWidth: barWidth(len(bars)),
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.Style{},
		YAxis: chart.YAxis{
			Name:  series.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

func renderPie(w io.Writer, series ReportSeries) error {
	var total float64
	values := make([]chart.Value, 0, len(series.Values))
	for i, v := range series.Values {
		if v <= 0 {
			continue
		}
		total += v
		values = append(values, chart.Value{Label: series.Labels[i], Value: v})
	}
	if total <= 0 {
		return renderPlaceholder(w)
	}

	graph := chart.PieChart{
		Title:  series.Title,
		Width:  reportWidth,
		Height: reportHeight,
		Values: values,
	}
	return graph.Render(chart.PNG, w)
}

// 柱子宽度随数量收缩，避免超出画布
func barWidth(n int) int {
	w := (reportWidth - 80) / (n * 2)
	if w > 60 {
		return 60
	}
	if w < 4 {
		return 4
	}
	return w
}

// 没有数据时输出一张空白图，保证文件名始终可用
func renderPlaceholder(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, reportWidth, reportHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return png.Encode(w, img)
}
