package words

// Curated list of words that are reasonable to draw. Kept deliberately
// concrete: abstract nouns make for miserable rounds.
var drawable = []string{
	// animals
	"cat", "dog", "fish", "bird", "lion", "tiger", "bear", "wolf", "fox",
	"deer", "rabbit", "mouse", "horse", "sheep", "snake", "frog", "duck",
	"owl", "bat", "crab", "shark", "whale", "dolphin", "penguin", "monkey",
	"panda", "zebra", "camel", "turtle", "spider", "elephant", "giraffe",
	"butterfly", "kangaroo", "crocodile", "hedgehog", "squirrel",
	// food
	"pizza", "burger", "cake", "bread", "cheese", "apple", "banana",
	"orange", "grape", "lemon", "egg", "corn", "taco", "donut", "cookie",
	"candy", "pasta", "salad", "soup", "carrot", "pepper", "cherry",
	"pancake", "sandwich", "icecream", "pineapple", "strawberry",
	"watermelon", "hamburger", "chocolate",
	// objects
	"chair", "table", "bed", "lamp", "door", "clock", "phone", "book",
	"key", "cup", "fork", "spoon", "knife", "plate", "brush", "mirror",
	"pillow", "ladder", "hammer", "scissors", "umbrella", "backpack",
	"computer", "keyboard", "television", "telescope", "microscope",
	"toothbrush", "headphones", "refrigerator",
	// nature
	"tree", "leaf", "rose", "sun", "moon", "star", "cloud", "rain",
	"snow", "wind", "beach", "river", "island", "cactus", "flower",
	"forest", "volcano", "rainbow", "mountain", "waterfall", "lightning",
	// vehicles
	"car", "bus", "bike", "boat", "ship", "train", "truck", "plane",
	"rocket", "tractor", "scooter", "airplane", "submarine", "helicopter",
	"motorcycle", "skateboard",
	// people and activity
	"king", "queen", "clown", "robot", "pirate", "wizard", "doctor",
	"dancer", "farmer", "cowboy", "astronaut", "firefighter",
	"dance", "swim", "jump", "sleep", "sing", "fishing", "painting",
	"juggling", "climbing",
	// sports
	"ball", "goal", "golf", "tennis", "soccer", "hockey", "bowling",
	"baseball", "football", "swimming", "trampoline", "basketball",
	// places and misc
	"house", "barn", "igloo", "tent", "castle", "bridge", "church",
	"school", "hospital", "lighthouse", "pyramid", "windmill",
	"guitar", "piano", "drum", "violin", "trumpet", "saxophone",
	"crown", "glasses", "necklace", "snowman", "scarecrow", "skeleton",
	"dinosaur", "dragon", "unicorn", "mermaid", "vampire", "treasure",
	"campfire", "fireworks", "parachute", "hourglass", "compass",
	"anchor", "magnet", "feather", "balloon", "kite", "dice", "chess",
}
