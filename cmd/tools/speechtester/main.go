package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/wikichat/internal/bootstrap"
	"github.com/zhouzirui/wikichat/internal/config"
	"github.com/zhouzirui/wikichat/internal/service/speech"
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

	audioPath := flag.String("audio", "", "ASR 输入音频文件路径 (wav 或 16kHz 16bit mono pcm)")
	session := flag.String("session", "", "自定义 sessionID，留空则自动生成")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")
	route := flag.Bool("route", false, "将识别结果交给应答路由并打印回复")
	verbose := flag.Bool("v", false, "输出 debug 日志")

	flag.Parse()

	if *audioPath == "" {
		flag.Usage()
		log.Fatal("需要通过 -audio 指定音频文件路径")
	}

	logger := zap.NewNop()
	if *verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("logger: %v", err)
		}
	}

	transcriber := bootstrap.NewTranscriber(cfg.Speech, logger)
	if transcriber == nil {
		log.Fatal("语音服务未启用，请先在环境变量中配置 SPEECH_APP_ID 与 SPEECH_ACCESS_TOKEN")
	}

	sessionID := *session
	if sessionID == "" {
		sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	audio, err := os.ReadFile(*audioPath)
	if err != nil {
		log.Fatalf("读取音频文件失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("开始进行 ASR 测试: session=%s format=%s bytes=%d window=%ds",
		sessionID, speech.AudioFormat(audio), len(audio), cfg.Speech.CaptureSeconds)

	result := transcriber.Transcribe(ctx, sessionID, audio)
	if !result.OK() {
		log.Fatalf("ASR 未得到文本 (%s): %s", result.Kind, result.Message)
	}
	log.Printf("ASR 识别成功: text=%q", result.Text)

	if !*route {
		return
	}

	responder, err := bootstrap.NewRouter(ctx, cfg.Lookup, nil, logger)
	if err != nil {
		log.Fatalf("应答路由初始化失败: %v", err)
	}
	fmt.Println(responder.Respond(ctx, result.Text))
}
