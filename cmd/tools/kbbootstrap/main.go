package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/campus-chat/backend/internal/config"
	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
	"github.com/zhouzirui/campus-chat/backend/internal/service/ai"
	"github.com/zhouzirui/campus-chat/backend/internal/service/sitecrawl"
)

const (
	contextFile    = "context.md"
	candidatesFile = "faq_candidates.csv"
	refinedFile    = "faq_en_es.csv"
)

type options struct {
	crawl  sitecrawl.Config
	outDir string
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	startURL := flag.String("url", "", "学校网站起始地址（只抓取该地址之下的页面）")
	maxPages := flag.Int("max-pages", 15, "最多抓取的 HTML 页面数")
	delay := flag.Duration("delay", 700*time.Millisecond, "相邻请求之间的间隔")
	ignoreRobots := flag.Bool("ignore-robots", false, "忽略 robots.txt")
	withAI := flag.Bool("with-ai", false, "调用模型整理出中英西双语 FAQ（需要 Ark 凭证）")
	outDir := flag.String("out", "site_extract", "输出目录")
	timeout := flag.Duration("timeout", 10*time.Minute, "整体超时时间")

	flag.Parse()

	if *startURL == "" {
		flag.Usage()
		log.Fatal("请通过 -url 指定起始地址")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var gen sitecrawl.Generator
	if *withAI {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("配置加载失败: %v", err)
		}
		if !cfg.AI.Enabled() {
			log.Fatal("Ark 凭证未配置，无法使用 -with-ai")
		}
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Fatalf("AI 服务初始化失败: %v", err)
		}
		gen = aiService
	}

	opts := options{
		crawl: sitecrawl.Config{
			StartURL:     *startURL,
			MaxPages:     *maxPages,
			Delay:        *delay,
			IgnoreRobots: *ignoreRobots,
		},
		outDir: *outDir,
	}
	if err := run(ctx, opts, gen); err != nil {
		log.Fatalf("抓取失败: %v", err)
	}
}

// run crawls the site and writes the context, the candidate sheet and, when gen
// is set, the refined bilingual sheet into opts.outDir.
func run(ctx context.Context, opts options, gen sitecrawl.Generator) error {
	crawler, err := sitecrawl.New(opts.crawl)
	if err != nil {
		return err
	}
	result, err := crawler.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("抓取完成: pages=%d candidates=%d", len(result.Pages), len(result.Candidates))

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := writeFile(filepath.Join(opts.outDir, contextFile), func(f *os.File) error {
		return sitecrawl.WriteContext(f, result)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(opts.outDir, candidatesFile), func(f *os.File) error {
		return sitecrawl.WriteCandidates(f, result.Candidates)
	}); err != nil {
		return err
	}
	log.Printf("已写入 %s 和 %s", contextFile, candidatesFile)

	if gen == nil {
		return nil
	}

	sheet, snapshot, err := sitecrawl.Refine(ctx, gen, result.Blocks())
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(opts.outDir, refinedFile), []byte(sheet), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", refinedFile, err)
	}
	log.Printf("已写入 %s: en=%d es=%d", refinedFile, snapshot.Count(model.English), snapshot.Count(model.Spanish))
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
