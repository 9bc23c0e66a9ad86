package market

import "errors"

var (
	ErrNilState              = errors.New("market: state not configured")
	ErrPlatformNotConfigured = errors.New("market: platform account not configured")
	ErrBookExists   = errors.New("market: book already exists")
	ErrBookNotFound = errors.New("market: book not found")
	ErrNotAuthor    = errors.New("market: caller is not the book author")

	ErrEmptyBookTitle         = errors.New("market: book title cannot be empty")
	ErrBookTitleTooLong       = errors.New("market: book title is too long")
	ErrEmptyBookDescription   = errors.New("market: book description cannot be empty")
	ErrBookDescriptionTooLong = errors.New("market: book description is too long")
	ErrEmptyBookGenre         = errors.New("market: book genre cannot be empty")
	ErrBookGenreTooLong       = errors.New("market: book genre is too long")
	ErrEmptyImageURL          = errors.New("market: image url cannot be empty")
	ErrImageURLTooLong        = errors.New("market: image url is too long")

	ErrInvalidChapterIndex = errors.New("market: invalid chapter index")
	ErrMaxChaptersReached  = errors.New("market: maximum number of chapters reached")
	ErrEmptyChapterURL     = errors.New("market: chapter url cannot be empty")
	ErrChapterURLTooLong   = errors.New("market: chapter url is too long")
	ErrEmptyChapterName    = errors.New("market: chapter name cannot be empty")
	ErrChapterNameTooLong  = errors.New("market: chapter name is too long")
	ErrInvalidChapterPrice = errors.New("market: invalid chapter price")
	ErrChapterPriceTooHigh = errors.New("market: chapter price is too high")
	ErrChapterAlreadySold  = errors.New("market: chapter with readers cannot be replaced")

	ErrAlreadyPurchased = errors.New("market: already purchased")
	ErrInvalidPrice     = errors.New("market: invalid price")

	ErrInsufficientFunds      = errors.New("market: insufficient funds")
	ErrNoStakers              = errors.New("market: no stakers available")
	ErrInvalidStakeAmount     = errors.New("market: invalid stake amount")
	ErrStakeAmountTooHigh     = errors.New("market: stake amount is too high")
	ErrNotQualifiedForStaking = errors.New("market: full book must be purchased before staking")
	ErrMaxStakersReached      = errors.New("market: maximum number of stakers reached")
	ErrStakerNotFound         = errors.New("market: stake not found for this staker")
	ErrNoEarningsToClaim      = errors.New("market: no earnings to claim")

	ErrArithmeticOverflow = errors.New("market: arithmetic overflow")
	ErrInvalidShareSplit  = errors.New("market: configured shares exceed the purchase price")
)
