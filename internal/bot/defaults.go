package bot

import (
	"time"

	"github.com/flemzord/warden/pkg/message"
)

const communityURL = "https://t.me/+KDhk3UEwZAg3MmU0"

const defaultWelcome = `Welcome to the Solium group! 🚀
Check the airdrop: /rewards
Read the rules: /rules
Got questions? Ask away! 😎`

const defaultSystemPrompt = `You are a friendly AI assistant bot, primarily designed to answer questions about Solium but also capable of responding to any prompt users throw at you, from technical topics to fun, random curiosities. Keep responses clear, engaging, and professional. Start in English, but switch to the user's language if they use another one.

When providing info about Solium, use a neutral, informative tone, focusing on its Web3-based features like transparency, decentralization, staking, and DAO governance. Avoid speculative or investment-related claims. Always include the note '(Solium is not available in some regions, including the USA, Canada, and OFAC-sanctioned countries.)' when answering Solium-related questions.

Avoid hashtags, excessive emojis, or aggressive promotional language.

Basic information:
- Project: Solium (SLM)
- Total Supply: 100,000,000 SLM
- Blockchain: Binance Smart Chain (BSC) and Solana
- BSC Contract Address: 0x307a0dc0814CbD64E81a9BC8517441Ca657fB9c7
- Solana Contract Address: 9rFLChxL7444pp1ykat7eoaFh76BiLEZNXUvn9Fpump

Tokenomics:
- Presale: 50M SLM (50%)
- Liquidity: 20M SLM (20%)
- Airdrop: 10M SLM (10%)
- Staking: 10M SLM (10%)
- GameFi & Rewards: 10M SLM (10%)

Main features:
- 100% Fair Launch: no team tokens, no dev fees, no private sale.
- Staking, DAO governance, GameFi expansion, and cross-chain bridge planned.

Your role is to assist users, act as a group moderator, and provide clear, trust-building responses. Always be honest, remind users that this is not financial advice and that Solium is not available for sale to residents of the USA or Canada.`

const (
	defaultFallback       = "Sorry, I can't answer right now."
	defaultResetCommand   = "/resetviolations"
	defaultParseMode      = "Markdown"
	defaultMaxReplyLength = 4096
	defaultTimeout        = 30 * time.Second
)

// DefaultConfig returns the stock Solium community bot.
func DefaultConfig() Config {
	return Config{
		Welcome: Reply{Text: defaultWelcome, ParseMode: defaultParseMode},
		Commands: map[string]Reply{
			"/start": {
				Text:      "Hello! 🤖 I'm Solium Support AI, ready to chat about *anything* on your mind! 🚀 Ask about Solium (SLM) or any other topic! 😄",
				ParseMode: defaultParseMode,
				Buttons: [][]message.Button{
					{
						{Text: "What is Solium? ❓", CallbackData: "what_is_solium"},
						{Text: "Ask Me Anything 💡", CallbackData: "ask_question"},
					},
					{{Text: "Join Community 💬", URL: communityURL}},
				},
			},
			"/askmeanything": {
				Text:      "Yes! 🎉 You're in *Ask Me Anything* mode! Serious, funny, or totally random, I'm ready for any question! 😄 Throw me a prompt, let's go!\n(Ex: 'How does AI work?', 'Tell me a joke!', or 'What should I do this weekend?')",
				ParseMode: defaultParseMode,
				Buttons: [][]message.Button{
					{
						{Text: "Ask a Question 💡", CallbackData: "ask_question"},
						{Text: "Fun Fact ❓", CallbackData: "fun_fact"},
					},
					{{Text: "Try Something Fun 🎲", CallbackData: "try_fun"}},
				},
			},
			"/rules": {
				Text: "*Group Rules*:\n" +
					"1. No profanity, insults, or inappropriate language.\n" +
					"2. Only official Solium links (e.g., " + communityURL + ") are allowed.\n" +
					"3. Promoting other cryptocurrencies or projects is prohibited.",
				ParseMode:      defaultParseMode,
				DisablePreview: true,
			},
			"/rewards": {
				Text: "*Solium Community Rewards*:\n" +
					"- Total: 10,000,000 SLM (10% of supply).\n" +
					"- Join: " + communityURL + "\n" +
					"- Distribution: 1M SLM every 7 days!\n" +
					"More info: Ask me or join " + communityURL + "! 😄",
				ParseMode:      defaultParseMode,
				DisablePreview: true,
			},
		},
		Callbacks: map[string]Reply{
			"ask_question": {
				Text: "Awesome! 😄 What's on your mind? Type your question, and let's dive in!",
			},
			"what_is_solium": {
				Text: "Solium (SLM) is a Web3 project focused on transparency and community governance, offering features like staking and DAO. 😊 (Solium is not available in some regions, including the USA, Canada, and OFAC-sanctioned countries.) What else are you curious about?",
				Buttons: [][]message.Button{
					{{Text: "Ask Me Anything 💡", CallbackData: "ask_question"}},
				},
			},
			"fun_fact": {
				Text: "Here's a fun fact! 😎 Did you know octopuses have three hearts? 🐙 Want another?",
				Buttons: [][]message.Button{
					{{Text: "Another Fact ❓", CallbackData: "fun_fact"}},
					{{Text: "Ask a Question 💡", CallbackData: "ask_question"}},
				},
			},
			"try_fun": {
				Text: "Let's have some fun! 😺 Send an emoji, tell me something you love, or share a random idea, and I'll whip up something special!",
			},
		},
		ResetCommand: defaultResetCommand,
		Assistant: AssistantConfig{
			SystemPrompt: defaultSystemPrompt,
			Fallback:     defaultFallback,
			Timeout:      defaultTimeout,
		},
		MaxReplyLength: defaultMaxReplyLength,
	}
}
