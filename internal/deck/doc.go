// Package deck reads card sets from YAML files so that a whole set can be
// created in one step. A deck file looks like:
//
//	name: Spanish verbs
//	topic: verbs
//	cards:
//	  - front: hablar
//	    back: to speak
//	  - front: comer
//	    back: to eat
//	    topic: irregular
//
// A card without its own topic inherits the deck topic.
package deck
