package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"resume-engine/internal/logger"
	"resume-engine/internal/processor"
	"resume-engine/internal/types"
)

// dispatch 执行命令并返回要输出的结果
func dispatch(ctx context.Context, engine *processor.Engine, command string, opts options) (any, error) {
	switch command {
	case "layout":
		id, err := resolveUpload(ctx, engine, opts)
		if err != nil {
			return nil, err
		}
		return engine.AnalyzeLayout(ctx, id)

	case "parse":
		id, err := resolveUpload(ctx, engine, opts)
		if err != nil {
			return nil, err
		}
		return engine.Parse(ctx, id)

	case "skills":
		text := opts.text
		if text == "" {
			parsed, err := parseUpload(ctx, engine, opts)
			if err != nil {
				return nil, err
			}
			text = parsed.FullText
		}
		return engine.ExtractSkills(text, opts.topN), nil

	case "quality":
		id, err := resolveUpload(ctx, engine, opts)
		if err != nil {
			return nil, err
		}
		parsed, err := engine.Parse(ctx, id)
		if err != nil {
			return nil, err
		}
		// 版面分析失败不影响其余维度
		layoutMetrics, err := engine.AnalyzeLayout(ctx, id)
		if err != nil {
			cliLog := logger.Component("cli")
			cliLog.Warn().Err(err).Msg("版面分析失败，版面维度不带版面指标")
		}
		return engine.EvaluateQuality(ctx, parsed, layoutMetrics)

	case "match":
		if opts.jobsPath == "" {
			return nil, fmt.Errorf("match 命令需要 --jobs 参数")
		}
		jobs, err := readJobs(opts.jobsPath)
		if err != nil {
			return nil, err
		}
		parsed, err := parseUpload(ctx, engine, opts)
		if err != nil {
			return nil, err
		}
		return engine.MatchJobs(ctx, parsed, jobs)

	default:
		return nil, fmt.Errorf("未知命令 '%s'，支持: layout, parse, skills, quality, match, sample-config", command)
	}
}

func parseUpload(ctx context.Context, engine *processor.Engine, opts options) (*types.ParsedResume, error) {
	id, err := resolveUpload(ctx, engine, opts)
	if err != nil {
		return nil, err
	}
	return engine.Parse(ctx, id)
}

// resolveUpload 返回要处理的 upload_id，指定本地文件时先写入文档存储
func resolveUpload(ctx context.Context, engine *processor.Engine, opts options) (string, error) {
	if opts.uploadID != "" {
		return opts.uploadID, nil
	}
	if opts.filePath == "" {
		return "", fmt.Errorf("需要 --upload 或 --file 参数")
	}

	store := engine.Store()
	if store == nil {
		return "", fmt.Errorf("未配置文档存储")
	}
	if _, ok := types.MediaTypeFromName(opts.filePath); !ok {
		return "", fmt.Errorf("%w: %s", types.ErrUnsupportedMediaType, filepath.Ext(opts.filePath))
	}

	data, err := os.ReadFile(opts.filePath)
	if err != nil {
		return "", fmt.Errorf("读取文件 %s 失败: %w", opts.filePath, err)
	}
	id, err := store.Put(ctx, filepath.Base(opts.filePath), data)
	if err != nil {
		return "", fmt.Errorf("写入文档存储失败: %w", err)
	}
	cliLog := logger.Component("cli")
	cliLog.Info().Str("upload_id", id).Str("file", opts.filePath).Msg("文档已写入存储")
	return id, nil
}

// readJobs 读取岗位列表，支持数组或 {"jobs": [...]} 两种格式
func readJobs(path string) ([]types.JobPosting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取岗位文件失败: %w", err)
	}

	var jobs []types.JobPosting
	if err := json.Unmarshal(data, &jobs); err == nil {
		return jobs, nil
	}

	var wrapped struct {
		Jobs []types.JobPosting `json:"jobs"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("解析岗位文件失败: %w", err)
	}
	if wrapped.Jobs == nil {
		return nil, errors.New("岗位文件中没有 jobs 字段")
	}
	return wrapped.Jobs, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
