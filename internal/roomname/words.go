package roomname

var moods = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "brave", "calm", "swift", "quiet", "bouncy",
}

var creatures = []string{
	"kitten", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "beaver", "narwhal", "penguin",
	"flamingo", "pelican", "sparrow", "robin", "toucan", "parrot", "dragon", "unicorn", "griffin", "phoenix",
}

var places = []string{
	"attic", "balcony", "cabin", "cellar", "den", "garden", "gazebo", "harbor", "hut", "igloo",
	"lagoon", "lodge", "loft", "meadow", "orchard", "parlor", "porch", "studio", "tower", "veranda",
}

var things = []string{
	"lantern", "pebble", "comet", "rocket", "marble", "biscuit", "muffin", "ember", "breeze", "willow",
	"teacup", "kettle", "button", "thimble", "compass", "banjo", "kazoo", "pinwheel", "anchor", "satchel",
}

var pools = [][]string{moods, creatures, places, things}
