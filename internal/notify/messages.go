package notify

import "math/rand/v2"

// Message is one push payload. Pools are immutable package tables indexed by
// campaign, tier, or milestone length.
type Message struct {
	Title string
	Body  string
}

var dailyPool = []Message{
	{"Good Morning! ☀️", "A small step today, a big difference!"},
	{"New Day, New Chance! 🌟", "Transform your home in 10 minutes!"},
	{"Grab Your Coffee! ☕", "Today's task is waiting for you!"},
}

var activationPool = []Message{
	{"Task Time! 🎁", "Today's surprise is ready, open it and start!"},
	{"Add 10 Minutes to Your Break 🧹", "Clean first, relax after!"},
	{"Netflix Can Wait 📺", "Task first, series later!"},
}

var atRiskPool = []Message{
	{"Last Chance! 🔥", "10 minutes to keep your streak alive!"},
	{"Before the Day Ends! ⏰", "Finish your task, sleep easy!"},
	{"Streak in Danger! ⚠️", "Keep it going today, champion!"},
}

var winBackPool = []Message{
	{"We Miss You! 💛", "Your home misses you too — come back for 10 minutes!"},
	{"Fresh Start? 🌱", "Three days off is fine. Today is day one again!"},
	{"One Small Task 🚪", "Open the app, your next task is already picked!"},
}

var weeklyGreatPool = []Message{
	{"Amazing Week! 🏆", "You cleaned almost every day — keep shining!"},
	{"Top Form! 💪", "Six or more tasks this week. Incredible!"},
}

var weeklyGoodPool = []Message{
	{"Solid Week! 👏", "A few more days and you'll hit a perfect week!"},
	{"Nice Rhythm! 🎵", "You're building a real habit — keep it up!"},
}

var weeklyLowPool = []Message{
	{"New Week, New You 🌤", "Last week was quiet. Let's make this one count!"},
	{"10 Minutes a Day ⏳", "That's all it takes. Start today!"},
}

// milestoneMessages is keyed by streak length. Each user receives a given
/// milestone message at most once: only the day their streak passes through
// that exact value.
var milestoneMessages = map[int]Message{
	7:   {"1 Week Streak! 🎉", "Seven days in a row — you're officially on a roll!"},
	14:  {"2 Week Streak! 🚀", "Fourteen days straight. Unstoppable!"},
	21:  {"3 Week Streak! ✨", "They say 21 days makes a habit. You made it!"},
	30:  {"1 Month Streak! 🏅", "A full month of daily cleaning. Respect!"},
	60:  {"2 Month Streak! 🔥", "Sixty days without missing one. Wow!"},
	90:  {"3 Month Streak! 💎", "A whole season of clean. Legendary!"},
	100: {"100 Day Streak! 💯", "Triple digits! You're in the hall of fame!"},
	200: {"200 Day Streak! 🌟", "Two hundred days. Words fail us!"},
	365: {"1 Year Streak! 👑", "365 days. You ARE the clean machine!"},
}

func pick(rng *rand.Rand, pool []Message) Message {
	return pool[rng.IntN(len(pool))]
}
