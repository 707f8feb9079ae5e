package commands

import "github.com/bwmarrin/discordgo"

func sessionIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "id",
		Description: "セッションID",
		Required:    true,
		MinValue:    floatPtr(0),
	}
}

func participantOption(n int, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        participantOptionNames[n],
		Description: "参加者",
		Required:    required,
	}
}

var participantOptionNames = []string{"p1", "p2", "p3", "p4", "p5"}

func GetCommands() []*discordgo.ApplicationCommand {
	createOptions := []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: "1人あたりのデポジット額（最小単位）",
			Required:    true,
			MinValue:    floatPtr(0),
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "deadline",
			Description: "開催日時（例: 2026-03-01 19:00 または RFC3339）",
			Required:    true,
		},
	}
	for n := range participantOptionNames {
		createOptions = append(createOptions, participantOption(n, n < 3))
	}
	createOptions = append(createOptions, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "voting_minutes",
		Description: "開催後の投票期間（分）",
		Required:    false,
		MinValue:    floatPtr(0),
	})

	return []*discordgo.ApplicationCommand{
		{
			Name:         "tozlow",
			Description:  "デポジット付きの出欠管理",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "セッションを作成します",
					Options:     createOptions,
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "deposit",
					Description: "デポジットします",
					Options:     []*discordgo.ApplicationCommandOption{sessionIDOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "vote",
					Description: "欠席した参加者に投票します",
					Options: []*discordgo.ApplicationCommandOption{
						sessionIDOption(),
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "欠席した参加者",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "finalize",
					Description: "投票期間後に精算します",
					Options:     []*discordgo.ApplicationCommandOption{sessionIDOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "セッションの状況を表示します",
					Options:     []*discordgo.ApplicationCommandOption{sessionIDOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "参加しているセッションの一覧を表示します",
				},
			},
		},
		{
			Name:        "wallet",
			Description: "残高を表示します",
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func floatPtr(f float64) *float64 {
	return &f
}
