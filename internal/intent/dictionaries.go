// internal/intent/dictionaries.go
package intent

// Entity dictionaries and routing tables for the pattern classifier.
// Multi-word entries are matched against query bigrams and trigrams.

var languages = newSet(
	"python", "javascript", "typescript", "java", "c++", "c#", "csharp", "c",
	"go", "golang", "rust", "ruby", "php", "swift", "kotlin", "scala",
	"r", "matlab", "perl", "haskell", "elixir", "clojure", "dart",
	"objective-c", "shell", "bash", "powershell", "lua", "groovy", "julia",
)

var frameworks = newSet(
	"react", "reactjs", "vue", "vuejs", "angular", "svelte", "nextjs", "next.js",
	"django", "flask", "fastapi", "express", "expressjs", "nodejs", "node.js",
	"spring", "spring boot", "rails", "ruby on rails", "laravel", "symfony",
	"tensorflow", "pytorch", "keras", "scikit-learn", "pandas", "numpy",
	"docker", "kubernetes", "k8s", "aws", "azure", "gcp", "firebase",
)

var topics = newSet(
	"ai", "machine learning", "ml", "deep learning", "nlp", "computer vision",
	"web development", "mobile", "ios", "android",
	"devops", "cloud", "database", "blockchain", "crypto", "security", "cybersecurity",
	"frontend", "backend", "fullstack", "data science", "analytics",
)

var cryptocurrencies = newSet(
	"bitcoin", "btc", "ethereum", "eth", "dogecoin", "doge", "litecoin", "ltc",
	"ripple", "xrp", "cardano", "ada", "solana", "sol", "polkadot", "dot",
	"binance coin", "bnb", "chainlink", "link", "polygon", "matic",
)

var stockTickers = newSet(
	"aapl", "msft", "googl", "amzn", "meta", "tsla", "nvda", "nflx",
	"dis", "ba", "nike", "v", "ma", "jpm", "bac", "wmt",
)

var stopWords = newSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "up", "about", "into", "through", "during",
	"could", "should", "would", "might", "must", "can", "will", "shall",
	"find", "show", "get", "search", "look", "give", "tell", "want",
	"me", "my", "i", "you", "your", "we", "our", "please", "thanks",
	"stuff", "thing", "things", "related", "all", "some", "any",
)

// entityCategories maps a dictionary to the category name used in
// Intent.Entities. Order matters: the first dictionary containing an
// n-gram claims it.
var entityCategories = []struct {
	name string
	set  map[string]struct{}
}{
	{"languages", languages},
	{"frameworks", frameworks},
	{"topics", topics},
	{"cryptocurrencies", cryptocurrencies},
	{"stocks", stockTickers},
}

func newSet(items ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}
