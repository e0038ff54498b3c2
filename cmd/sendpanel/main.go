// Command sendpanel posts an apply panel for every section into the
// given channel and registers it, without running the full bot.
//
// Usage: sendpanel <channel id>
package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/panels"
	"github.com/tostemail20-glitch/MTCapplys/store"
	"github.com/tostemail20-glitch/MTCapplys/surface"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sendpanel <channel id>")
		os.Exit(1)
	}
	channelID := os.Args[1]

	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("#[SendPanel]: No .env file loaded:", err)
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	st, err := store.NewRedis(redisAddr)
	if err != nil {
		fmt.Println("#[SendPanel]: Error connecting to redis:", err)
		os.Exit(1)
	}

	dg, err := discordgo.New("Bot " + os.Getenv("TOKEN"))
	if err != nil {
		fmt.Println("#[SendPanel]: Error creating Discord session:", err)
		os.Exit(1)
	}
	sfc := surface.NewDiscord(dg, os.Getenv("GUILDID"))

	sectionIDs, err := st.ListSectionIDs()
	if err != nil {
		fmt.Println("#[SendPanel]: Error listing sections:", err)
		os.Exit(1)
	}
	reg, err := st.LoadRegistry()
	if err != nil {
		fmt.Println("#[SendPanel]: Error loading registry:", err)
		os.Exit(1)
	}
	known, err := sfc.CustomEmojiIDs()
	if err != nil {
		known = nil
	}

	content, err := panels.BuildApplyContent(st, reg.MainMessage, sectionIDs, known)
	if err != nil {
		fmt.Println("#[SendPanel]: Error building panel:", err)
		os.Exit(1)
	}
	messageID, err := sfc.SendMessage(channelID, content)
	if err != nil {
		fmt.Println("#[SendPanel]: Error sending panel:", err)
		os.Exit(1)
	}
	if err := panels.Register(st, datastructs.PanelApply, channelID, messageID, sectionIDs); err != nil {
		fmt.Println("#[SendPanel]: Error registering panel:", err)
		os.Exit(1)
	}
	fmt.Println("#[SendPanel]: Panel sent and registered:", messageID)
}
