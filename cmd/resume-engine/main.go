package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-engine/internal/config"
	"resume-engine/internal/constants"
	"resume-engine/internal/logger"
	"resume-engine/internal/metrics"
	"resume-engine/internal/processor"
	"resume-engine/internal/tracing"

	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"               //nolint:gochecknoglobals
	serviceName = constants.ServiceName //nolint:gochecknoglobals
)

// options 命令行参数
type options struct {
	configPath  string
	uploadID    string
	filePath    string
	text        string
	jobsPath    string
	outputPath  string
	topN        int
	metricsAddr string
	pretty      bool
	showVersion bool
}

func usage() {
	fmt.Fprintf(os.Stderr, `用法: %s [参数] <命令>

命令:
  layout         分析文档版面 (--upload 或 --file)
  parse          解析文档章节和关键词 (--upload 或 --file)
  skills         提取技能 (--text，或 --upload / --file)
  quality        评估简历质量 (--upload 或 --file)
  match          与岗位匹配 (--upload 或 --file，加 --jobs)
  sample-config  生成示例配置文件 (--output)

参数:
`, os.Args[0])
	pflag.PrintDefaults()
}

func main() {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "", "配置文件路径，为空时自动查找")
	pflag.StringVarP(&opts.uploadID, "upload", "u", "", "已存入文档存储的 upload_id")
	pflag.StringVarP(&opts.filePath, "file", "f", "", "本地文档路径，先写入文档存储再处理")
	pflag.StringVarP(&opts.text, "text", "t", "", "直接提供简历文本 (skills 命令)")
	pflag.StringVarP(&opts.jobsPath, "jobs", "j", "", "岗位列表 JSON 文件 (match 命令)")
	pflag.StringVarP(&opts.outputPath, "output", "o", "config.yaml", "示例配置输出路径 (sample-config 命令)")
	pflag.IntVarP(&opts.topN, "top", "n", 0, "技能数量，0 表示使用配置中的默认值")
	pflag.StringVar(&opts.metricsAddr, "metrics-addr", "", "运行期间暴露 Prometheus 指标的地址，例如 :9090")
	pflag.BoolVar(&opts.pretty, "pretty", true, "缩进输出 JSON")
	pflag.BoolVarP(&opts.showVersion, "version", "v", false, "显示版本")
	pflag.Usage = usage
	pflag.Parse()

	if opts.showVersion {
		fmt.Printf("%s %s\n", serviceName, version)
		return
	}

	command := pflag.Arg(0)
	if command == "" {
		usage()
		os.Exit(2)
	}

	// sample-config 不需要加载配置
	if command == "sample-config" {
		if err := config.CreateSampleConfig(opts.outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "生成示例配置失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "示例配置已写入 %s\n", opts.outputPath)
		return
	}

	if err := run(command, opts); err != nil {
		logger.Error().Err(err).Str("command", command).Msg("命令执行失败")
		os.Exit(1)
	}
}

func run(command string, opts options) error {
	// 1. 加载配置
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 2. 日志输出到 stderr，stdout 只输出结果
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	log := logger.Component("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 链路追踪
	tracingName := cfg.Tracing.ServiceName
	if tracingName == "" {
		tracingName = serviceName
	}
	shutdown, err := tracing.InitProvider(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: tracingName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Warn().Err(err).Msg("初始化链路追踪失败，继续运行")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("关闭链路追踪失败")
			}
		}()
	}

	// 4. 引擎
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
	}
	engine, err := processor.NewEngineFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("初始化引擎失败: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭引擎资源失败")
		}
	}()

	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, engine.Metrics())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Debug().Str("command", command).Str("version", version).Msg("开始执行命令")

	result, err := dispatch(ctx, engine, command, opts)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, result, opts.pretty)
}

// serveMetrics 在后台暴露 /metrics
func serveMetrics(addr string, m *metrics.Metrics) *http.Server {
	log := logger.Component("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("指标服务已启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("指标服务异常退出")
		}
	}()
	return srv
}
