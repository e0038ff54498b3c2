package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/tostemail20-glitch/MTCapplys/panels"
	"github.com/tostemail20-glitch/MTCapplys/sessions"
	"github.com/tostemail20-glitch/MTCapplys/store"
	"github.com/tostemail20-glitch/MTCapplys/surface"
	"github.com/tostemail20-glitch/MTCapplys/wizard"
)

// bot bundles everything the event handlers need.
type bot struct {
	store    store.Store
	surface  surface.Surface
	sessions *sessions.Manager
	wizard   *wizard.Wizard
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("#[Main]: No .env file loaded:", err)
	}

	token := os.Getenv("TOKEN")
	guildid := os.Getenv("GUILDID")
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	st, err := store.NewRedis(redisAddr)
	if err != nil {
		fmt.Println("#[Main]: Error connecting to redis:", err)
		return
	}
	fmt.Println("#[Redis]: Started Successfully!")

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		fmt.Println("#[Main]: Error creating Discord session:", err)
		return
	}

	intents := discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent | discordgo.IntentsGuildMembers | discordgo.IntentsDirectMessages
	dg.Identify.Intents = intents

	sfc := surface.NewDiscord(dg, guildid)
	mgr := sessions.NewManager()
	b := &bot{
		store:    st,
		surface:  sfc,
		sessions: mgr,
		wizard:   wizard.New(st, sfc, mgr),
	}

	dg.AddHandler(b.onInteractionCreate)
	dg.AddHandler(b.onMessageCreate)

	err = dg.Open()
	if err != nil {
		fmt.Println("#[Main]: Error opening discordgo connection:", err)
		return
	}

	// the refresher is started here, exactly once, not lazily by the
	// first handled event
	ctx, cancel := context.WithCancel(context.Background())
	refresher := &panels.Refresher{Store: st, Surface: sfc}
	refresher.Start(ctx)

	fmt.Println("#[Main]: Bot is running successfully!")

	defer func() {
		fmt.Println("#[Main]: Starting shutdown logic.")
		cancel()
		dg.Close()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
