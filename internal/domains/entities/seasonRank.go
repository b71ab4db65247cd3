package entities

type SeasonRank struct {
	UserId         string   `dynamodbav:"Id"`
	Rank           string   `dynamodbav:"Rank"`
	LastSeasonRank string   `dynamodbav:"LastSeasonRank"`
	SeasonId       string   `dynamodbav:"SeasonId"`
	Wins           int      `dynamodbav:"Wins"`
	Losses         int      `dynamodbav:"Losses"`
	GamesPlayed    int      `dynamodbav:"GamesPlayed"`
	WinRate        float64  `dynamodbav:"WinRate"`
	SeasonScore    int      `dynamodbav:"SeasonScore"`
	LossStreak     int      `dynamodbav:"LossStreak"`
	RecordedRounds []string `dynamodbav:"RecordedRounds,omitempty"`
}
