package bot

import "fmt"

// User-visible strings, centralized so flows stay consistent.
const (
	msgGreeting = "Hi! I am RedForester Keeper bot"
	msgAbout    = "I will save your messages as nodes to a specific branch on your map"
	msgCommands = "Available commands are:\n/start\n/stop\n/help\n"

	msgHelp = msgGreeting + ".\n" + msgAbout + ".\n\n" + msgCommands +
		"\n" + `<a href="https://github.com/RedForester/rf_keeper_telegram">Bot source code</a>`

	msgAskUsername = msgGreeting + ".\n" + msgAbout + ".\n\n" +
		"Let's start, type your username (email) from your RedForester account or /cancel:"
	msgAskPassword = "And then type your password or /cancel:"
	msgLoginFailed = "Something went wrong. Please try again or type /cancel\n" +
		"Type your username (email):"
	msgAlreadyStarted = "We've already started. To logout from your account type /stop"

	msgActionCanceled     = "Action was canceled. Type /start to repeat"
	msgNothingToCancel    = "Nothing to cancel"
	msgUnsupportedCommand = "Unsupported command\n" + msgCommands
	msgDone               = "Done"

	msgNoStart         = "You have to /start first"
	msgUnsupportedType = "Unsupported message type"
	msgAuthError       = "Auth error"
	msgRemoteError     = "Something went wrong. Please try again"
	msgMessageExpired  = "I lost the original message, please send it again"

	msgSelectAction        = "Select the action:"
	msgFavoritesError      = "Can not get favorites list"
	msgNoLastSaved         = "You have no last saved node"
	msgLastSavedNotFound   = "Last saved node not found, please select the new node"
	msgNodeNotFound        = "This node seems to be deleted, or you have no access to it"
	msgDestinationNotFound = "Destination node not found. Please select the new node"
	msgNodeCreated         = "Node has been created"
	msgNodeMoved           = "Node has been moved"
)

func msgLoginGreeting(surname string, name string) string {
	return fmt.Sprintf("Hi, %s %s!\nYour login and password is correct!\n\n"+
		"Now send me messages and I will save them to RedForester", surname, name)
}

func msgDestinationError(destinationURL string) string {
	return fmt.Sprintf(`Please check if you have access to the <a href="%s">destination node</a> and try again`,
		destinationURL)
}
