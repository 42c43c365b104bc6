package narrative

import "MarketSim/internal/domain/models"

type storyTemplate struct {
	titles       []string
	explanations []string
	analogy      string
	prediction   string
	mood         string
}

var templates = map[models.StoryType]storyTemplate{
	models.StoryStrongBullish: {
		titles: []string{
			"📈 Our Stock is Having a Great Day!",
			"🚀 Shares Are Flying High Today!",
			"💰 Investors Are Really Happy Today!",
		},
		explanations: []string{
			"Think of our company's stock like a popular toy that everyone wants to buy. When lots of people want the same toy, the price goes up because the store knows people really want it!",
			"Our company's shares are like tickets to a really cool movie. When everyone hears it's amazing, more people want tickets, so the price goes higher!",
			"Imagine our stock is like a lemonade stand on a hot day. When everyone is thirsty and wants lemonade, we can charge more because people really need what we're selling!",
		},
		analogy:    "It's like having a lemonade stand on the hottest day of summer - everyone wants what you're selling!",
		prediction: "If people keep feeling good about this company, the price might stay high or go even higher!",
		mood:       "Super excited! 🎉",
	},
	models.StoryStrongBearish: {
		titles: []string{
			"📉 Our Stock is Taking a Break Today",
			"😟 Investors Are Being Careful Today",
			"📊 Stock Price is Going Down Right Now",
		},
		explanations: []string{
			"Sometimes when people are worried about spending money, they don't buy as many things. It's like when kids save their allowance instead of buying candy - fewer people buying means lower prices.",
			"Think of our stock like an ice cream truck on a cold day. Even though the ice cream is still good, fewer people want to buy it when it's chilly outside!",
			"Our shares are like a popular game that just got harder to play. Some people are selling their copies because they're not sure if they want to keep playing right now.",
		},
		analogy:    "It's like trying to sell ice cream during a snowstorm - people just aren't in the mood to buy right now.",
		prediction: "The price might stay low until people feel better about buying again.",
		mood:       "Taking it easy 😌",
	},
	models.StoryNeutral: {
		titles: []string{
			"😐 Stock is Taking it Easy Today",
			"📊 Pretty Normal Day for Our Stock",
			"🤷 Not Much Happening in the Market Today",
		},
		explanations: []string{
			"Today is like a regular school day - nothing super exciting happened, but nothing bad either. Our stock price is just staying about the same.",
			"Think of today like the weather being just right - not too hot, not too cold. Investors are feeling pretty 'meh' about buying or selling.",
			"Our stock is like a steady friend who doesn't have big mood swings. Some days are just calm and normal!",
		},
		analogy:    "It's like a regular day at school - nothing super exciting, but nothing bad either.",
		prediction: "Tomorrow could bring changes - markets are always full of surprises!",
		mood:       "Just chilling 😐",
	},
}

type sectorAnalogy struct {
	simple  string
	analogy string
}

var defaultAnalogy = sectorAnalogy{
	simple:  "companies in this business area",
	analogy: "like other companies that do similar work",
}

var sectorAnalogies = map[string]sectorAnalogy{
	"financial-services":     {"banks and money companies", "like the piggy bank where everyone keeps their money safe"},
	"it":                     {"computer and tech companies", "like the people who make our phones, apps, and video games"},
	"healthcare":             {"doctors and medicine companies", "like hospitals and companies that make medicine to help sick people"},
	"consumer-discretionary": {"stores and fun stuff companies", "like toy stores, restaurants, and places that sell things we want but don't really need"},
	"consumer-staples":       {"grocery and basic needs companies", "like supermarkets and companies that make food, soap, and stuff we use every day"},
	"energy":                 {"oil and power companies", "like gas stations and companies that make electricity for our homes"},
	"materials":              {"companies that make basic stuff", "like factories that make metal, wood, and materials to build things"},
	"industrials":            {"big machine companies", "like companies that make trucks, airplanes, and big machines for factories"},
	"utilities":              {"water and electricity companies", "like the people who make sure we have lights, water, and heat in our homes"},
	"real-estate":            {"house and building companies", "like people who build houses, offices, and help others buy or rent places to live"},
	"telecommunications":     {"phone and internet companies", "like companies that help us call friends and use the internet"},
	"automotive":             {"car companies", "like factories that make cars, trucks, and motorcycles"},
	"media-entertainment":    {"movie and TV companies", "like companies that make movies, TV shows, and fun entertainment"},
}

// eventExplanations holds the good and bad reading of each event type.
var eventExplanations = map[models.EventType][2]string{
	models.EventEarnings: {
		"The company just showed their report card and got really good grades! This makes investors happy.",
		"The company's report card wasn't as good as expected, so some investors are disappointed.",
	},
	models.EventAnalyst: {
		"Smart money experts said our company is doing better than they thought - like getting a better grade than you expected!",
		"Money experts think our company might not do as well as they hoped - like getting a lower grade than expected.",
	},
	models.EventNews: {
		"Good news came out about our company today, like hearing your favorite team won a big game!",
		"Some not-so-good news came out, which made investors a bit worried.",
	},
	models.EventInsider: {
		"The company's own bosses are buying more shares - like the chef eating at their own restaurant because they know the food is good!",
		"Some company bosses sold their shares, which can make other investors wonder why.",
	},
}
