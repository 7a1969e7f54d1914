package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/campus-chat/backend/internal/config"
	chatmodel "github.com/zhouzirui/campus-chat/backend/internal/model/chat"
	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
	"github.com/zhouzirui/campus-chat/backend/internal/service/ai"
	"github.com/zhouzirui/campus-chat/backend/internal/service/chat"
	"github.com/zhouzirui/campus-chat/backend/internal/service/knowledge"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "", "测试模式: load, match, prompt 或 reply")
	source := flag.String("csv", "", "CSV 地址或本地路径，默认使用 CSV_URL")
	query := flag.String("q", "", "match/prompt/reply 模式的用户问题")
	kb := flag.String("kb", "", "附加知识文本")
	lang := flag.String("lang", "", "强制回复语言: en, es 或 ja")
	cutoff := flag.Float64("cutoff", cfg.Knowledge.MatchCutoff, "模糊匹配阈值")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	switch *mode {
	case "load", "match", "prompt", "reply":
	default:
		flag.Usage()
		log.Fatal("请通过 -mode=load|match|prompt|reply 指定测试模式")
	}
	if *mode != "load" && strings.TrimSpace(*query) == "" {
		log.Fatalf("%s 模式需要通过 -q 提供问题", *mode)
	}

	csvSource := *source
	if csvSource == "" {
		csvSource = cfg.Knowledge.CSVURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := knowledge.NewStore(knowledge.StoreConfig{Source: csvSource, TTL: time.Hour})
	if err := store.Reload(ctx); err != nil {
		log.Fatalf("知识库加载失败: %v", err)
	}
	snapshot := store.Context(ctx)

	switch *mode {
	case "load":
		runLoad(snapshot, csvSource)
	case "match":
		runMatch(snapshot, *query, *cutoff)
	case "prompt":
		req := chatmodel.Request{Message: *query, KB: *kb, Lang: *lang}
		runPrompt(snapshot, req, *cutoff)
	case "reply":
		req := chatmodel.Request{Message: *query, KB: *kb, Lang: *lang}
		runReply(ctx, cfg, store, req, *cutoff)
	}
}

func runLoad(snapshot model.Snapshot, source string) {
	log.Printf("知识库加载成功: source=%q version=%s", source, snapshot.Version)
	for _, lang := range model.Languages {
		log.Printf("[%s] %d 条", strings.ToUpper(string(lang)), snapshot.Count(lang))
		for _, pair := range snapshot.Sample(lang, 3) {
			fmt.Printf("  Q: %s\n  A: %s\n", pair.Question, pair.Answer)
		}
	}
}

func runMatch(snapshot model.Snapshot, query string, cutoff float64) {
	match, ok := knowledge.TopMatch(query, snapshot.All(), cutoff)
	if !ok {
		log.Printf("未找到相似度 >= %.2f 的问题", cutoff)
		return
	}
	fmt.Printf("Q: %s\nA: %s\n", match.Question, match.Answer)
}

func runPrompt(snapshot model.Snapshot, req chatmodel.Request, cutoff float64) {
	var hint *model.Pair
	if match, ok := knowledge.TopMatch(req.Message, snapshot.All(), cutoff); ok {
		hint = &match
	}
	fmt.Println("=== system ===")
	fmt.Println(chat.BuildSystemPrompt(req.Lang))
	fmt.Println("=== user ===")
	fmt.Println(chat.BuildUserPrompt(snapshot, hint, req.KB, req.Message))
}

func runReply(ctx context.Context, cfg *config.Config, store *knowledge.Store, req chatmodel.Request, cutoff float64) {
	if !cfg.AI.Enabled() {
		log.Fatal("Ark 凭证未配置，无法调用模型")
	}
	aiService, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("AI 服务初始化失败: %v", err)
	}

	reply, err := chat.NewService(aiService, store, cutoff).Reply(ctx, req)
	if err != nil {
		log.Fatalf("生成回复失败: %v", err)
	}
	log.Printf("回复成功:\n%s", reply)
}
